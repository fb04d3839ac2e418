package pqds

import (
	"bufio"
	"os"
	"strings"
	"time"
)

const (
	logRuleWidth = 45
	logTimestamp = "2/1/2006 15:04:05"
)

// AppendLog appends one audit entry: a rule line when the log already has
// content, a quoted timestamp header with the event GUID, every metadata
// line, and the list of channel keys written.
func AppendLog(path string, at time.Time, guid string, tags []Tag, keys []string) error {
	rule := false
	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		rule = true
	}

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(fh)
	if rule {
		bw.WriteString(strings.Repeat("-", logRuleWidth) + "\n")
	}
	bw.WriteString(`"` + at.Format(logTimestamp) + `",` + guid + "\n")
	for _, t := range tags {
		bw.WriteString(t.Line() + "\n")
	}
	bw.WriteString(DataHeader + "," + strings.Join(keys, ",") + "\n")
	if err := bw.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
