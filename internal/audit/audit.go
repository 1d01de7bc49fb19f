// Package audit provides the per-order activity trail. Every pipeline step
// and administrative action appends one pipe-delimited record to the trail
// file, so a failed order can be triaged after the fact.
package audit

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder receives audit events. The fulfillment engine writes through this
// interface so it stays decoupled from the trail's storage.
type Recorder interface {
	Record(orderID, step, result, msg string)
}

// Entry is one parsed trail record.
type Entry struct {
	Time    time.Time
	Session string
	OrderID string
	Step    string
	Result  string
	Message string
}

// Trail appends audit records to a file and echoes them to the logger.
// Records are tagged with a session identifier so overlapping administrative
// sessions in the same trail file can be told apart.
type Trail struct {
	path    string
	session string
	lg      *zap.Logger
	now     func() time.Time
}

var _ Recorder = (*Trail)(nil)

// NewTrail creates a Trail writing to path. A fresh session identifier is
// allocated per Trail.
func NewTrail(path string, lg *zap.Logger) *Trail {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Trail{
		path:    path,
		session: uuid.New().String(),
		lg:      lg,
		now:     time.Now,
	}
}

// Session returns the trail's session identifier.
func (t *Trail) Session() string {
	return t.session
}

// Record appends one trail record. Trail write failures must never corrupt
// or abort a fulfillment transition, so they are logged and swallowed.
func (t *Trail) Record(orderID, step, result, msg string) {
	line := fmt.Sprintf("%s|%s|%s|%s|%s|%s\n",
		t.now().UTC().Format(time.RFC3339), t.session, orderID, step, result, msg)

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.lg.Warn("audit trail unavailable", zap.Error(err))
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line); err != nil {
		t.lg.Warn("audit trail write failed", zap.Error(err))
	}

	t.lg.Info("audit",
		zap.String("order_id", orderID),
		zap.String("step", step),
		zap.String("result", result),
		zap.String("msg", msg),
	)
}

// ByOrder reads the trail file and returns entries for one order, oldest
// first. A missing trail file yields no entries.
func (t *Trail) ByOrder(orderID string) ([]Entry, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		e, ok := parseEntry(sc.Text())
		if !ok {
			continue
		}
		if strings.EqualFold(e.OrderID, orderID) {
			entries = append(entries, e)
		}
	}
	return entries, sc.Err()
}

func parseEntry(line string) (Entry, bool) {
	parts := strings.SplitN(strings.TrimSpace(line), "|", 6)
	if len(parts) < 6 {
		return Entry{}, false
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Time:    ts,
		Session: parts[1],
		OrderID: parts[2],
		Step:    parts[3],
		Result:  parts[4],
		Message: parts[5],
	}, true
}

// Nop is a Recorder that discards all events, for tests and tools that do
// not keep a trail.
type Nop struct{}

func (Nop) Record(string, string, string, string) {}
