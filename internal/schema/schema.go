package schema

// FieldType is the declared type a standardized field is coerced to.
type FieldType int

const (
	TypeString FieldType = iota
	TypeDecimal
	TypeDate
)

// FieldSpec declares one standardized field: its name, target type, whether
// a record without it is rejected, and the raw column headers it may arrive
// under across carrier templates.
type FieldSpec struct {
	Name       string
	Type       FieldType
	Required   bool
	RawHeaders []string
}

// Registry is the ordered set of field specs making up the standardized
// bordereaux schema. Order is the canonical column order of the enriched
// output.
type Registry struct {
	fields []FieldSpec
	byName map[string]FieldSpec
}

func NewRegistry(fields []FieldSpec) Registry {
	byName := make(map[string]FieldSpec, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	return Registry{fields: fields, byName: byName}
}

func (r Registry) Fields() []FieldSpec {
	return r.fields
}

func (r Registry) Lookup(name string) (FieldSpec, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// Default returns the standardized bordereaux schema. Carrier templates
// disagree on header spelling, so each field lists the headers seen in the
// wild, checked in order.
func Default() Registry {
	return NewRegistry([]FieldSpec{
		{Name: "effective_date", Type: TypeDate, RawHeaders: []string{"Effective Date"}},
		{Name: "expiration_date", Type: TypeDate, RawHeaders: []string{"Expiration Date"}},
		{Name: "gross_premium", Type: TypeDecimal, RawHeaders: []string{"Gross Written Premium", "Gross Premium"}},
		{Name: "net_premium", Type: TypeDecimal, RawHeaders: []string{"Net Written Premium", "Net Premium"}},
		{Name: "commission_amount", Type: TypeDecimal, RawHeaders: []string{"Commission Amount", "Commission"}},
		{Name: "ceded_commission_amount", Type: TypeDecimal, RawHeaders: []string{"Ceded Commission Amount", "Ceded Commission"}},
		{Name: "commission_rate_pct", Type: TypeDecimal, RawHeaders: []string{"Commission Rate %", "Commission %"}},
		{Name: "quota_share_pct", Type: TypeDecimal, RawHeaders: []string{"Quota Share %"}},
		{Name: "penal_amount", Type: TypeDecimal, RawHeaders: []string{"Penal Amount", "Penal Sum"}},
		{Name: "product_name", Type: TypeString, RawHeaders: []string{"Product", "Product Name"}},
		{Name: "premium_state", Type: TypeString, RawHeaders: []string{"Premium State", "State"}},
		{Name: "principal_name", Type: TypeString, RawHeaders: []string{"Principal / Account Name", "Principal Name"}},
		{Name: "principal_address", Type: TypeString, Required: true, RawHeaders: []string{"Principal / Account Mailing Address", "Principal Address"}},
		{Name: "principal_zip", Type: TypeString, RawHeaders: []string{"Zip", "ZIP", "Zip Code"}},
		{Name: "broker_name", Type: TypeString, RawHeaders: []string{"Broker Name", "Broker"}},
		{Name: "broker_state", Type: TypeString, RawHeaders: []string{"Broker State"}},
		{Name: "obligee_name", Type: TypeString, RawHeaders: []string{"Obligee Name", "Obligee"}},
		{Name: "obligee_state", Type: TypeString, RawHeaders: []string{"Obligee State"}},
	})
}
