package output

import (
	"strconv"
	"strings"
	"time"

	"github.com/gubancs/leafmap"
	"github.com/gubancs/leafmap/internal/store"
	"github.com/gubancs/leafmap/pkg/events"
	"github.com/gubancs/leafmap/pkg/leaflet"
)

// SessionsTable lists live sessions.
func SessionsTable(infos []leafmap.Info) Data {
	data := Data{
		Headers:         []string{"ID", "Attached", "Dispatched", "Dropped", "Pending", "Created"},
		ColumnAlignment: []Align{AlignLeft, AlignCenter, AlignRight, AlignRight, AlignRight, AlignLeft},
	}
	for _, info := range infos {
		data.Rows = append(data.Rows, []string{
			info.ID,
			yesNo(info.Attached),
			strconv.FormatInt(info.Dispatched, 10),
			strconv.FormatInt(info.Dropped, 10),
			strconv.Itoa(info.PendingCalls),
			formatTime(info.CreatedAt),
		})
	}
	return data
}

// SummariesTable lists sessions with saved snapshots.
func SummariesTable(summaries []store.Summary) Data {
	data := Data{
		Headers:         []string{"Session", "Versions", "Latest", "Entities", "Saved"},
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignLeft},
	}
	for _, s := range summaries {
		data.Rows = append(data.Rows, []string{
			s.SessionID,
			strconv.Itoa(s.Versions),
			strconv.Itoa(s.LatestVersion),
			strconv.Itoa(s.Entities),
			formatTime(s.SavedAt),
		})
	}
	return data
}

// EventTypesTable lists the registered event types, optionally limited
// to one family.
func EventTypesTable(reg *events.Registry, family events.Family) Data {
	data := Data{
		Headers: []string{"Family", "Name"},
	}
	for _, fam := range reg.Families() {
		if family != "" && fam != family {
			continue
		}
		for _, t := range reg.Types(fam) {
			data.Rows = append(data.Rows, []string{string(fam), t.Name()})
		}
	}
	return data
}

// TreeTable flattens a snapshot into one row per entity, indenting ids
// by depth. Subscribed events appear only in wide mode.
func TreeTable(snap leaflet.Snapshot) Data {
	data := Data{
		Headers: []string{"ID", "Kind", "Events"},
		Wide:    1,
	}
	var walk func(s leaflet.Snapshot, depth int, prefix string)
	walk = func(s leaflet.Snapshot, depth int, prefix string) {
		data.Rows = append(data.Rows, []string{
			strings.Repeat("  ", depth) + prefix + s.ID,
			s.Kind,
			strings.Join(s.Events, ","),
		})
		if s.Popup != nil {
			walk(*s.Popup, depth+1, "popup: ")
		}
		if s.Tooltip != nil {
			walk(*s.Tooltip, depth+1, "tooltip: ")
		}
		for _, c := range s.Controls {
			walk(c, depth+1, "control: ")
		}
		for _, c := range s.Children {
			walk(c, depth+1, "")
		}
	}
	walk(snap, 0, "")
	return data
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
