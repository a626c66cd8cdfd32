// Package stops loads the bus stop/route dataset and answers nearest-stop queries
package stops

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/randytsao24/comfortablemove/internal/models"
)

const (
	// minFields is routeId, routeName, nodeId, arsId, stopName, x, y
	minFields = 7

	maxLineBytes = 1024 * 1024
)

// ParseError describes a data row that was skipped during load
type ParseError struct {
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Group is one physical stop: records sharing a name and coordinate
type Group struct {
	Stop     models.StopRecord
	Routes   []string
	RouteIDs map[string]int
}

func (g *Group) addRoute(name string, id int) {
	if _, seen := g.RouteIDs[name]; seen {
		return
	}
	g.RouteIDs[name] = id
	g.Routes = append(g.Routes, name)
}

type groupKey struct {
	name string
	x, y float64
}

// Catalog holds the parsed dataset. It is read-only after load.
type Catalog struct {
	records []models.StopRecord
	groups  []*Group
	index   map[groupKey]*Group
	byNode  map[int]*Group
	skipped []*ParseError
}

func newCatalog() *Catalog {
	return &Catalog{
		index:  make(map[groupKey]*Group),
		byNode: make(map[int]*Group),
	}
}

// LoadFile reads a .csv or .xlsx stop dataset from disk
func LoadFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stops file: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(file)
	}
	return Load(file)
}

// Load parses comma-delimited stop data with a header row. Each line is split
// on its own, so a malformed row costs only that row and is skipped.
func Load(r io.Reader) (*Catalog, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		return nil, fmt.Errorf("stops data has no header row")
	}

	c := newCatalog()
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		c.add(splitRow(text), line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stops data: %w", err)
	}

	c.group()
	return c, nil
}

// splitRow splits one line on commas outside double quotes. Quote characters
// only toggle quoting and are dropped; there is no escaped-quote form.
func splitRow(line string) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)
	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(ch)
		}
	}
	return append(fields, field.String())
}

func (c *Catalog) add(fields []string, line int) {
	rec, perr := parseRow(fields, line)
	if perr != nil {
		c.skip(perr)
		return
	}
	c.records = append(c.records, rec)
}

func (c *Catalog) skip(perr *ParseError) {
	slog.Debug("skipping stop row", "line", perr.Line, "reason", perr.Error())
	c.skipped = append(c.skipped, perr)
}

func parseRow(fields []string, line int) (models.StopRecord, *ParseError) {
	if len(fields) < minFields {
		return models.StopRecord{}, &ParseError{
			Line:   line,
			Reason: fmt.Sprintf("expected at least %d fields, got %d", minFields, len(fields)),
		}
	}

	for i := range fields[:minFields] {
		fields[i] = strings.TrimSpace(fields[i])
	}

	routeID, err := strconv.Atoi(fields[0])
	if err != nil {
		return models.StopRecord{}, &ParseError{Line: line, Reason: "invalid route id", Err: err}
	}
	nodeID, err := strconv.Atoi(fields[2])
	if err != nil {
		return models.StopRecord{}, &ParseError{Line: line, Reason: "invalid node id", Err: err}
	}
	arsID, err := strconv.Atoi(fields[3])
	if err != nil {
		return models.StopRecord{}, &ParseError{Line: line, Reason: "invalid ars id", Err: err}
	}
	x, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return models.StopRecord{}, &ParseError{Line: line, Reason: "invalid x coordinate", Err: err}
	}
	y, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return models.StopRecord{}, &ParseError{Line: line, Reason: "invalid y coordinate", Err: err}
	}

	return models.StopRecord{
		NodeID:    nodeID,
		RouteID:   routeID,
		RouteName: fields[1],
		ArsID:     arsID,
		StopName:  fields[4],
		X:         x,
		Y:         y,
	}, nil
}

// group builds the physical-stop index once, right after load.
// Groups are kept ordered by (name, x, y) so queries are deterministic.
func (c *Catalog) group() {
	for _, rec := range c.records {
		key := groupKey{name: rec.StopName, x: rec.X, y: rec.Y}
		g, ok := c.index[key]
		if !ok {
			g = &Group{Stop: rec, RouteIDs: make(map[string]int)}
			c.index[key] = g
			c.groups = append(c.groups, g)
		}
		g.addRoute(rec.RouteName, rec.RouteID)
	}

	sort.SliceStable(c.groups, func(i, j int) bool {
		a, b := c.groups[i].Stop, c.groups[j].Stop
		if a.StopName != b.StopName {
			return a.StopName < b.StopName
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	for _, g := range c.groups {
		if _, exists := c.byNode[g.Stop.NodeID]; !exists {
			c.byNode[g.Stop.NodeID] = g
		}
	}
}

// Records returns every parsed row
func (c *Catalog) Records() []models.StopRecord {
	return c.records
}

// Groups returns the physical stops in (name, x, y) order
func (c *Catalog) Groups() []*Group {
	return c.groups
}

// Count returns the number of loaded rows
func (c *Catalog) Count() int {
	return len(c.records)
}

// GroupCount returns the number of distinct physical stops
func (c *Catalog) GroupCount() int {
	return len(c.groups)
}

// Skipped returns the rows rejected during load
func (c *Catalog) Skipped() []*ParseError {
	return c.skipped
}

// Stop looks up a physical stop by the node id of its representative row
func (c *Catalog) Stop(nodeID int) (*Group, bool) {
	g, ok := c.byNode[nodeID]
	return g, ok
}
