package relation

// Kind classifies how two tables are linked.
type Kind string

const (
	HasOne         Kind = "has_one"
	HasMany        Kind = "has_many"
	BelongsTo      Kind = "belongs_to"
	BelongsToMany  Kind = "belongs_to_many"
	HasOneThrough  Kind = "has_one_through"
	HasManyThrough Kind = "has_many_through"
	MorphTo        Kind = "morph_to"
	MorphOne       Kind = "morph_one"
	MorphMany      Kind = "morph_many"
	MorphToMany    Kind = "morph_to_many"
)

// Constraint is a fixed predicate always ANDed into a relationship's
// eager-load query (e.g. "only approved rows").
type Constraint struct {
	Column   string `yaml:"column"`
	Operator string `yaml:"operator"` // eq, ne, gt, gte, lt, lte; default eq
	Value    any    `yaml:"value"`
}

// Relationship describes one link out of an entity. Defined at startup
// from the entity YAML, immutable thereafter.
type Relationship struct {
	Name   string `yaml:"-"`
	Kind   Kind   `yaml:"kind"`
	Entity string `yaml:"entity"` // related entity registry name; blank for morph_to
	Table  string `yaml:"table"`  // related table; the linker fills it from the entity when blank

	// ForeignKey lives on the related table for has_* kinds and on the
	// owning table for belongs_to. LocalKey is the matched key on the
	// other side; it defaults to "id".
	ForeignKey string `yaml:"foreign_key"`
	LocalKey   string `yaml:"local_key"`

	// belongs_to_many / morph_to_many
	PivotTable      string `yaml:"pivot_table"`
	PivotLocalKey   string `yaml:"pivot_local_key"`
	PivotForeignKey string `yaml:"pivot_foreign_key"`

	// has_one_through / has_many_through
	ThroughEntity   string `yaml:"through_entity"`
	ThroughTable    string `yaml:"through_table"`
	FirstKey        string `yaml:"first_key"`  // FK on the through table referencing the parent
	SecondKey       string `yaml:"second_key"` // FK on the final table referencing the through table
	ThroughLocalKey string `yaml:"through_local_key"`

	// morph_*: discriminator columns plus the stored type value that
	// identifies the owning entity
	MorphType  string `yaml:"morph_type"`
	MorphID    string `yaml:"morph_id"`
	MorphValue string `yaml:"morph_value"`

	Order       string       `yaml:"order"`
	Constraints []Constraint `yaml:"constraints"`

	// runtime refs wired by the entity linker (never serialized)
	relatedRelations map[string]*Relationship
}

// SetRelated wires the runtime reference to the related entity's own
// relationship table, enabling nested include paths.
func (r *Relationship) SetRelated(table string, relations map[string]*Relationship) {
	if r.Table == "" {
		r.Table = table
	}
	r.relatedRelations = relations
}

// RelatedRelations returns the related entity's relationship table for
// nested traversal, or nil when not linked (morph_to).
func (r *Relationship) RelatedRelations() map[string]*Relationship {
	return r.relatedRelations
}

// localKey returns the matched key with its "id" default applied.
func (r *Relationship) localKey() string {
	if r.LocalKey != "" {
		return r.LocalKey
	}
	return "id"
}

func (r *Relationship) throughLocalKey() string {
	if r.ThroughLocalKey != "" {
		return r.ThroughLocalKey
	}
	return "id"
}

// ParentKeyColumn is the column on the parent rows whose distinct
// values key the batch load.
func (r *Relationship) ParentKeyColumn() string {
	switch r.Kind {
	case BelongsTo:
		return r.ForeignKey
	case MorphTo:
		return r.MorphID
	default:
		return r.localKey()
	}
}

// Single reports whether the relationship resolves to at most one row
// per parent.
func (r *Relationship) Single() bool {
	switch r.Kind {
	case HasOne, BelongsTo, HasOneThrough, MorphTo, MorphOne:
		return true
	}
	return false
}
