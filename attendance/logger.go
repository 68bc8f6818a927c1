package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var csvHeader = []string{"Name", "Age", "Date", "Time"}

// Record is one appended attendance row.
type Record struct {
	Name string `json:"name"`
	Age  string `json:"age"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// Logger appends attendance events to a durable CSV log, suppressing repeat
// entries for the same name within the cooldown window. The cooldown table
// lives in memory only, so a process restart can produce one duplicate row
// per person immediately after startup; that is a known limitation, not a
// bug.
type Logger struct {
	mu         sync.Mutex
	path       string
	cooldown   time.Duration
	lastLogged map[string]time.Time
	now        func() time.Time
}

func NewLogger(path string, cooldown time.Duration) *Logger {
	return &Logger{
		path:       path,
		cooldown:   cooldown,
		lastLogged: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Log appends one row for name unless another row for the same name was
// written less than the cooldown window ago, in which case it is a no-op.
// The header row is written exactly once, when the log file is first created;
// appends never touch it.
func (l *Logger) Log(name, age string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.lastLogged[name]; ok && now.Sub(last) < l.cooldown {
		return nil
	}

	needHeader := false
	if info, err := os.Stat(l.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		needHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open attendance log %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write attendance header: %w", err)
		}
	}
	row := []string{name, age, now.Format("2006-01-02"), now.Format("15:04:05")}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to append attendance row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush attendance row: %w", err)
	}

	l.lastLogged[name] = now
	return nil
}

// Recent returns up to limit of the most recent attendance rows, newest
// first. A missing log file yields an empty slice.
func (l *Logger) Recent(limit int) ([]Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open attendance log %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var records []Record
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read attendance log %s: %w", l.path, err)
		}
		if first {
			first = false
			continue // header
		}
		if len(row) < 4 {
			continue
		}
		records = append(records, Record{Name: row[0], Age: row[1], Date: row[2], Time: row[3]})
	}

	// newest first
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
