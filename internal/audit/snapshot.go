package audit

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm/schema"
)

// Snapshot maps column names to their canonical serialized values.
type Snapshot map[string]any

// Keys returns the field names in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return sortStrings(keys)
}

// Clone returns a shallow copy.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	c := make(Snapshot, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Encode renders the snapshot as JSON with sorted keys.
func (s Snapshot) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DefaultExcludedFields never appear in a snapshot captured by the default Capturer.
var DefaultExcludedFields = []string{"password_hash"}

// Capturer extracts snapshots from gorm models.
type Capturer struct {
	excluded map[string]struct{}
	cache    *sync.Map
	namer    schema.Namer
}

// NewCapturer creates a Capturer that drops the given column names.
func NewCapturer(excluded ...string) *Capturer {
	c := &Capturer{
		excluded: make(map[string]struct{}, len(excluded)),
		cache:    &sync.Map{},
		namer:    schema.NamingStrategy{},
	}
	for _, f := range excluded {
		c.excluded[f] = struct{}{}
	}
	return c
}

var defaultCapturer = NewCapturer(DefaultExcludedFields...)

// Capture snapshots record with the default exclusion set.
func Capture(record any) (Snapshot, error) {
	return defaultCapturer.Capture(record)
}

// Capture returns every persisted column of record. Associations are not columns
// and are skipped.
func (c *Capturer) Capture(record any) (Snapshot, error) {
	sch, err := schema.Parse(record, c.cache, c.namer)
	if err != nil {
		return nil, fmt.Errorf("audit: parse %T: %w", record, err)
	}

	rv := reflect.ValueOf(record)
	ctx := context.Background()
	snap := make(Snapshot, len(sch.DBNames))
	for _, name := range sch.DBNames {
		if _, skip := c.excluded[name]; skip {
			continue
		}
		field := sch.FieldsByDBName[name]
		value, _ := field.ValueOf(ctx, rv)
		snap[name] = serialize(field, value)
	}
	return snap, nil
}

// FormatTime is the canonical timestamp rendering used in snapshots.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

const dateLayout = "2006-01-02"

// serialize renders one column value. Unknown types fall back to fmt's rendering,
// which is lossy for structured values.
func serialize(field *schema.Field, value any) any {
	rv := reflect.ValueOf(value)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	value = rv.Interface()

	switch v := value.(type) {
	case time.Time:
		if field.DataType == "date" {
			return v.Format(dateLayout)
		}
		return FormatTime(v)
	case float32:
		return formatFloat(field, float64(v))
	case float64:
		return formatFloat(field, v)
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v
	case []byte:
		return string(v)
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return fmt.Sprint(value)
		}
		return serialize(field, dv)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(field *schema.Field, v float64) any {
	if field.Scale > 0 {
		return strconv.FormatFloat(v, 'f', field.Scale, 64)
	}
	return v
}

// Diff returns the sorted names of fields whose serialized values differ,
// including fields present in only one of the snapshots.
func Diff(old, new Snapshot) []string {
	changed := make([]string, 0)
	for k, ov := range old {
		nv, ok := new[k]
		if !ok || !sameValue(ov, nv) {
			changed = append(changed, k)
		}
	}
	for k := range new {
		if _, ok := old[k]; !ok {
			changed = append(changed, k)
		}
	}
	return sortStrings(changed)
}

// Equal reports whether two snapshots have an empty diff.
func Equal(a, b Snapshot) bool {
	return len(Diff(a, b)) == 0
}

// sameValue compares by JSON encoding so a value read back from the ledger
// (numbers decode as float64) equals the captured original.
func sameValue(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(ja, jb)
}

func sortStrings(s []string) []string {
	sort.Strings(s)
	return s
}
