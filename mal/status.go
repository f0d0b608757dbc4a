package mal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
)

// Status is a list entry's watch status as MyAnimeList encodes it.
type Status int

// MyAnimeList statuses. 5 is unused.
const (
	Watching    Status = 1
	Finished    Status = 2
	OnHold      Status = 3
	Dropped     Status = 4
	PlanToWatch Status = 6
)

var statusNames = []struct {
	name   string
	status Status
}{
	{"watching", Watching},
	{"finished", Finished},
	{"onHold", OnHold},
	{"dropped", Dropped},
	{"planToWatch", PlanToWatch},
}

func (s Status) String() string {
	for _, n := range statusNames {
		if n.status == s {
			return n.name
		}
	}
	return strconv.Itoa(int(s))
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, n := range statusNames {
		if n.status == s {
			return true
		}
	}
	return false
}

// ParseStatus accepts a status name ("planToWatch") or its numeric code
// ("6").
func ParseStatus(v string) (Status, error) {
	for _, n := range statusNames {
		if n.name == v {
			return n.status, nil
		}
	}
	if code, err := strconv.Atoi(v); err == nil && Status(code).Valid() {
		return Status(code), nil
	}
	return 0, unknownStatus(v)
}

// FilterBy returns the entries with the given status.
func FilterBy(status Status, list []Entry) ([]Entry, error) {
	if !status.Valid() {
		return nil, unknownStatus(strconv.Itoa(int(status)))
	}
	out := []Entry{}
	for _, e := range list {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

// FilterByPlanToWatch returns the entries the user plans to watch.
func FilterByPlanToWatch(list []Entry) []Entry {
	out, _ := FilterBy(PlanToWatch, list)
	return out
}

func unknownStatus(v string) error {
	names := make([]string, len(statusNames))
	for i, n := range statusNames {
		names[i] = n.name
	}
	return apperror.Newf(apperror.CodeInvalidMALStatus,
		"Status '%s' was not a recognised code: Try %s", v, fmt.Sprintf("[%s]", strings.Join(names, ", ")))
}
