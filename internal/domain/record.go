package domain

const (
	// MissingValue is written in place of an attribute the element does not carry.
	MissingValue = "None"

	// DefaultTagType is the type of a tag whose key has no colon.
	DefaultTagType = "regular"
)

// Table names one of the five output tables.
type Table string

const (
	TableNodes    Table = "nodes"
	TableNodeTags Table = "nodes_tags"
	TableWays     Table = "ways"
	TableWayNodes Table = "ways_nodes"
	TableWayTags  Table = "ways_tags"
)

// Column order matches the relational schema the tables are loaded into.
var (
	NodeFields    = []string{"id", "lat", "lon", "user", "uid", "version", "changeset", "timestamp"}
	TagFields     = []string{"id", "key", "value", "type"}
	WayFields     = []string{"id", "user", "uid", "version", "changeset", "timestamp"}
	WayNodeFields = []string{"id", "node_id", "position"}
)

// Tables lists every output table in load order.
var Tables = []Table{TableNodes, TableNodeTags, TableWays, TableWayNodes, TableWayTags}

// Columns returns the ordered column names of t.
func (t Table) Columns() []string {
	switch t {
	case TableNodes:
		return NodeFields
	case TableWays:
		return WayFields
	case TableWayNodes:
		return WayNodeFields
	case TableNodeTags, TableWayTags:
		return TagFields
	default:
		return nil
	}
}

// NodeRecord is the attribute row of a node.
type NodeRecord struct {
	ID        string `json:"id"`
	Lat       string `json:"lat"`
	Lon       string `json:"lon"`
	User      string `json:"user"`
	UID       string `json:"uid"`
	Version   string `json:"version"`
	Changeset string `json:"changeset"`
	Timestamp string `json:"timestamp"`
}

// WayRecord is the attribute row of a way.
type WayRecord struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	UID       string `json:"uid"`
	Version   string `json:"version"`
	Changeset string `json:"changeset"`
	Timestamp string `json:"timestamp"`
}

// TagRecord is one tag of a node or way. ID is the owning element's id.
type TagRecord struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// WayNodeRecord references a node from a way. Position is the child index of
// the <nd> within the way, counting every child element.
type WayNodeRecord struct {
	ID       string `json:"id"`
	NodeID   string `json:"node_id"`
	Position int    `json:"position"`
}

// Bundle is the shaped form of one element. For KindNode only Node and Tags
// are set; for KindWay only Way, WayNodes and Tags.
type Bundle struct {
	Kind     Kind
	Node     NodeRecord
	Way      WayRecord
	WayNodes []WayNodeRecord
	Tags     []TagRecord
}

// ID returns the id of the shaped element.
func (b Bundle) ID() string {
	if b.Kind == KindWay {
		return b.Way.ID
	}
	return b.Node.ID
}

// TableRows holds the rows a bundle contributes to a single table. Values are
// strings except way-node positions, which are ints.
type TableRows struct {
	Table Table
	Rows  [][]any
}

// Rows flattens the bundle into per-table rows in column order.
func (b Bundle) Rows() []TableRows {
	switch b.Kind {
	case KindNode:
		n := b.Node
		return []TableRows{
			{Table: TableNodes, Rows: [][]any{{n.ID, n.Lat, n.Lon, n.User, n.UID, n.Version, n.Changeset, n.Timestamp}}},
			{Table: TableNodeTags, Rows: tagRows(b.Tags)},
		}
	case KindWay:
		w := b.Way
		nodes := make([][]any, len(b.WayNodes))
		for i, wn := range b.WayNodes {
			nodes[i] = []any{wn.ID, wn.NodeID, wn.Position}
		}
		return []TableRows{
			{Table: TableWays, Rows: [][]any{{w.ID, w.User, w.UID, w.Version, w.Changeset, w.Timestamp}}},
			{Table: TableWayNodes, Rows: nodes},
			{Table: TableWayTags, Rows: tagRows(b.Tags)},
		}
	default:
		return nil
	}
}

func tagRows(tags []TagRecord) [][]any {
	rows := make([][]any, len(tags))
	for i, t := range tags {
		rows[i] = []any{t.ID, t.Key, t.Value, t.Type}
	}
	return rows
}
