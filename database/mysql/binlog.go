package mysql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-mysql-org/go-mysql/replication"
	"github.com/m4n5ter/ownership-cache-killer/database"
)

// MysqlBinlog tails the local binlog and purges every customer whose row is deleted
// from one of the watched tables. The first column of a watched table is the customer id.
type MysqlBinlog struct {
	mappedTable   map[uint64]string         // Mapping of table id and "schema:table"
	watched       map[string]struct{}       // Tables whose deleted rows are customers
	parser        *replication.BinlogParser // Binlog parser
	DataDir       string                    // Data directory of mysql
	binlogFile    string                    // Binlog file path
	currentOffset int64                     // Current offset of binlog file
	logger        *slog.Logger
}

func NewMysqlBinlog(dataDir string, tables []string, logger *slog.Logger) *MysqlBinlog {
	if logger == nil {
		logger = slog.Default()
	}
	watched := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		watched[t] = struct{}{}
	}
	return &MysqlBinlog{
		mappedTable: make(map[uint64]string),
		watched:     watched,
		parser:      replication.NewBinlogParser(),
		DataDir:     dataDir,
		logger:      logger,
	}
}

var _ database.DBListener = (*MysqlBinlog)(nil)

func (m *MysqlBinlog) Listen(ctx context.Context, purger database.CustomerPurger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Create a new watcher: %w", err)
	}
	defer watcher.Close()

	if err := m.setup(); err != nil {
		return err
	}

	file, err := os.Open(m.binlogFile)
	if err != nil {
		return fmt.Errorf("Open the binlog file: %w", err)
	}
	defer func() { file.Close() }()

	binlogIndex := path.Join(m.DataDir, "binlog.index")
	if err := watcher.Add(binlogIndex); err != nil {
		return fmt.Errorf("Watch %s: %w", binlogIndex, err)
	}
	if err := watcher.Add(m.binlogFile); err != nil {
		return fmt.Errorf("Watch %s: %w", m.binlogFile, err)
	}
	m.logger.Info("Listening to the binlog file", "path", m.binlogFile, "tables", len(m.watched))

	return m.run(ctx, purger, watcher, &file, binlogIndex)
}

func (m *MysqlBinlog) setup() error {
	if err := m.computeBinlogFilePath(); err != nil {
		return fmt.Errorf("Get the newest binlog file path: %w", err)
	}
	if err := m.mapTable(); err != nil {
		return fmt.Errorf("Map table: %w", err)
	}
	return nil
}

// Get the mapping of table name and table id and set current offset
func (m *MysqlBinlog) mapTable() error {
	p := replication.NewBinlogParser()
	return p.ParseFile(m.binlogFile, 0, func(be *replication.BinlogEvent) error {
		if be.Header.EventType == replication.TABLE_MAP_EVENT {
			m.updateMappedTable(be.Event.(*replication.TableMapEvent))
		}
		m.currentOffset = int64(be.Header.LogPos)
		return nil
	})
}

// Table name is the combination of schema and table name like "schema:table"
func (m *MysqlBinlog) updateMappedTable(event *replication.TableMapEvent) {
	m.mappedTable[event.TableID] = string(event.Schema) + ":" + string(event.Table)
}

// Compute the newest binlog file from the last line of the binlog.index file
func (m *MysqlBinlog) computeBinlogFilePath() error {
	index := path.Join(m.DataDir, "binlog.index")

	f, err := os.Open(index)
	if err != nil {
		return err
	}
	defer f.Close()

	var offset int64 = -1
	var lastLine []byte
	buf := make([]byte, 1)

	for {
		// Read from the end of the file
		_, err = f.Seek(offset, io.SeekEnd)
		if err != nil {
			if len(lastLine) > 0 {
				break // single line index without a leading newline
			}
			return err
		}

		n, err := f.Read(buf)
		if err != nil {
			return err
		}

		if buf[0] == '\n' && n > 0 && len(strings.TrimSpace(string(lastLine))) > 0 {
			break
		}

		lastLine = append([]byte{buf[0]}, lastLine...)
		offset--
	}

	newest := strings.TrimSpace(string(lastLine))
	if newest == "" {
		return fmt.Errorf("empty binlog index %s", index)
	}
	m.binlogFile = path.Join(m.DataDir, path.Base(newest))
	return nil
}

func (m *MysqlBinlog) run(ctx context.Context, purger database.CustomerPurger, watcher *fsnotify.Watcher, file **os.File, binlogIndex string) error {
	customers := make([]string, 0, 64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("Watcher closed")
			}
			if event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}

			// Switch to the new binlog file when binlog.index is updated
			if event.Name == binlogIndex {
				if err := m.rotate(watcher, file); err != nil {
					return err
				}
			}

			if event.Name == m.binlogFile || event.Name == binlogIndex {
				var err error
				customers, err = m.readDeletedCustomers(*file, customers[:0])
				if err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("Watcher closed")
			}
			return fmt.Errorf("Watcher error: %w", err)
		}

		for _, id := range customers {
			// The purger reports failures itself
			if err := purger.PurgeCustomer(ctx, id); err != nil {
				m.logger.Error("Skipping deleted row without a customer id", "customer_id", id, "error", err)
			}
		}
		customers = customers[:0]
	}
}

func (m *MysqlBinlog) rotate(watcher *fsnotify.Watcher, file **os.File) error {
	old := m.binlogFile
	if err := m.computeBinlogFilePath(); err != nil {
		return fmt.Errorf("Get the newest binlog file path: %w", err)
	}
	if old == m.binlogFile {
		return nil
	}
	m.logger.Info("Binlog rotated", "from", old, "to", m.binlogFile)

	clear(m.mappedTable)
	m.currentOffset = 4

	next, err := os.Open(m.binlogFile)
	if err != nil {
		return fmt.Errorf("Open the new binlog file: %w", err)
	}
	(*file).Close()
	*file = next

	_ = watcher.Remove(old)
	if err := watcher.Add(m.binlogFile); err != nil {
		return fmt.Errorf("Watch %s: %w", m.binlogFile, err)
	}
	return nil
}

// readDeletedCustomers parses the binlog from the current offset and appends the
// customer id of every row deleted from a watched table.
func (m *MysqlBinlog) readDeletedCustomers(file *os.File, customers []string) ([]string, error) {
	if m.currentOffset < 4 {
		m.currentOffset = 4
	} else if m.currentOffset > 4 {
		// FORMAT_DESCRIPTION event should always be read first, whatever the offset
		if _, err := file.Seek(4, io.SeekStart); err != nil {
			return nil, fmt.Errorf("Seek to the start position: %w", err)
		}
		if _, err := m.parser.ParseSingleEvent(file, func(be *replication.BinlogEvent) error { return nil }); err != nil {
			return nil, fmt.Errorf("Parse the FORMAT_DESCRIPTION event: %w", err)
		}
	}

	if _, err := file.Seek(m.currentOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("Seek to the current offset: %w", err)
	}

	err := m.parser.ParseReader(file, func(be *replication.BinlogEvent) error {
		switch be.Header.EventType {
		case replication.DELETE_ROWS_EVENTv0, replication.DELETE_ROWS_EVENTv1, replication.DELETE_ROWS_EVENTv2:
			event := be.Event.(*replication.RowsEvent)
			table := m.mappedTable[event.TableID]
			if _, ok := m.watched[table]; ok {
				customers = append(customers, m.customerIDs(table, event.Rows)...)
			}
		case replication.TABLE_MAP_EVENT:
			m.updateMappedTable(be.Event.(*replication.TableMapEvent))
		}

		m.currentOffset = int64(be.Header.LogPos)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Parse binlog file: %w", err)
	}

	if _, err := file.Seek(m.currentOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("Update the current offset: %w", err)
	}
	return customers, nil
}

func (m *MysqlBinlog) customerIDs(table string, rows [][]interface{}) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		id, err := customerID(row[0])
		if err != nil {
			m.logger.Error("Unknown customer id column", "table", table, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func customerID(v interface{}) (string, error) {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t), nil
	case int8:
		return strconv.FormatInt(int64(t), 10), nil
	case int16:
		return strconv.FormatInt(int64(t), 10), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint32:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	default:
		return "", fmt.Errorf("Unknown primary key type: %T", t)
	}
}
