package schemafile

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wirecodec/codec"
	"github.com/wippyai/wirecodec/derive"
	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
)

// TypeInfo is an analyzed declaration.
type TypeInfo struct {
	Record *derive.RecordProgram
	Enum   *derive.EnumProgram
	Name   string
	Kind   string
	Pos    string
	// Size is the fixed size of an opaque type, -1 when it varies.
	Size    int
	MinSize int
}

// Listing renders the type's op program.
func (t *TypeInfo) Listing() string {
	switch t.Kind {
	case KindRecord:
		return t.Record.Listing()
	case KindEnum:
		return t.Enum.Listing()
	}
	var b strings.Builder
	b.WriteString("opaque ")
	b.WriteString(t.Name)
	if t.Size >= 0 {
		b.WriteString(" size ")
		b.WriteString(strconv.Itoa(t.Size))
	} else {
		b.WriteString(" min ")
		b.WriteString(strconv.Itoa(t.MinSize))
	}
	b.WriteByte('\n')
	return b.String()
}

// Fingerprint hashes the wire layout of a record or enum.
func (t *TypeInfo) Fingerprint() (derive.Fingerprint, error) {
	switch t.Kind {
	case KindRecord:
		return t.Record.Fingerprint()
	case KindEnum:
		return t.Enum.Fingerprint()
	}
	return derive.Fingerprint{}, errors.Unsupported(errors.PhaseResolve, "fingerprint of opaque type "+t.Name)
}

// Schema is an analyzed declaration file.
type Schema struct {
	File      *File
	logger    *zap.Logger
	types     map[string]*TypeInfo
	order     []*TypeInfo
	maxLength int
}

// Option configures analysis.
type Option func(*Schema)

// WithMaxLength caps the element count Decode accepts for any length.
// Non-positive values are ignored.
func WithMaxLength(n int) Option {
	return func(s *Schema) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

// WithLogger logs each analyzed type at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Schema) {
		if l != nil {
			s.logger = l
		}
	}
}

// Types returns the analyzed types in declaration order.
func (s *Schema) Types() []*TypeInfo {
	return s.order
}

// Lookup returns the named type.
func (s *Schema) Lookup(name string) (*TypeInfo, bool) {
	t, ok := s.types[name]
	return t, ok
}

// sizes reports minimum sizes of referenced types once analysis is done.
func (s *Schema) sizes(ref schema.TypeRef) int {
	switch ref.Form {
	case schema.FormNamed:
		if t, ok := s.types[ref.Name]; ok {
			return t.MinSize
		}
	case schema.FormPointer:
		return 1
	}
	return 0
}

type declared struct {
	info   *TypeInfo
	record schema.Record
	enum   schema.Enum
	err    bool
}

type analyzer struct {
	file  *File
	decls map[string]*declared
	state map[string]uint8
	errs  errors.List
}

const (
	visiting uint8 = iota + 1
	visited
)

// Analyze resolves every declaration in f, computes minimum sizes in
// dependency order and derives the codec programs. Independent errors are
// collected and returned together as an errors.List.
func Analyze(f *File, opts ...Option) (*Schema, error) {
	s := &Schema{
		File:      f,
		logger:    zap.NewNop(),
		types:     make(map[string]*TypeInfo, len(f.Types)),
		maxLength: codec.DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(s)
	}

	a := &analyzer{
		file:  f,
		decls: make(map[string]*declared, len(f.Types)),
		state: make(map[string]uint8, len(f.Types)),
	}

	var order []*declared
	for i := range f.Types {
		td := &f.Types[i]
		pos := td.pos(f.Path)
		if td.Name == "" {
			a.fail(errors.New(errors.PhaseResolve, errors.KindInvalidData).
				Pos(pos).
				Detail("type has no name").
				Build())
			continue
		}
		if prev, dup := a.decls[td.Name]; dup {
			a.fail(errors.New(errors.PhaseResolve, errors.KindInvalidData).
				Pos(pos).
				Value(td.Name).
				Detail("type %q already declared at %s", td.Name, prev.info.Pos).
				Build())
			continue
		}
		d := a.declare(td, pos)
		a.decls[td.Name] = d
		order = append(order, d)
	}

	for _, d := range order {
		if !d.err {
			a.checkRefs(d)
		}
	}
	if len(a.errs) > 0 {
		return nil, a.errs
	}

	for _, d := range order {
		a.minSize(d.info.Name)
	}
	for _, d := range order {
		a.program(d)
		s.types[d.info.Name] = d.info
		s.order = append(s.order, d.info)
	}
	if len(a.errs) > 0 {
		return nil, a.errs
	}
	for _, ti := range s.order {
		s.logger.Debug("analyzed type",
			zap.String("file", f.Path),
			zap.String("type", ti.Name),
			zap.String("kind", ti.Kind),
			zap.Int("min_size", ti.MinSize))
	}
	return s, nil
}

func (a *analyzer) fail(err error) {
	if e, ok := errors.AsError(err); ok {
		a.errs = append(a.errs, e)
		return
	}
	a.errs = append(a.errs, errors.Wrap(errors.PhaseResolve, errors.KindInvalidData, err, "analyze"))
}

// declare converts and resolves one declaration.
func (a *analyzer) declare(td *TypeDecl, pos string) *declared {
	d := &declared{info: &TypeInfo{Name: td.Name, Pos: pos, Size: -1}}
	kind := td.Kind
	if kind == "" {
		kind = KindRecord
		if len(td.Variants) > 0 {
			kind = KindEnum
		}
	}
	d.info.Kind = kind

	var err error
	switch kind {
	case KindRecord:
		d.record, err = a.resolveRecord(td, pos)
	case KindEnum:
		d.enum, err = a.resolveEnum(td, pos)
	case KindOpaque:
		err = a.resolveOpaque(td, d.info, pos)
	case KindUnion:
		err = errors.New(errors.PhaseResolve, errors.KindUnsupported).
			Pos(pos).
			Value(td.Name).
			Detail("unions are not supported").
			Build()
	default:
		err = errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Pos(pos).
			Value(kind).
			Detail("unknown kind %q for type %q", kind, td.Name).
			Build()
	}
	if err != nil {
		a.fail(err)
		d.err = true
	}
	return d
}

func (a *analyzer) resolveRecord(td *TypeDecl, pos string) (schema.Record, error) {
	if len(td.Variants) > 0 {
		return schema.Record{}, errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Pos(pos).
			Detail("record %q cannot have variants", td.Name).
			Build()
	}
	attrs, err := attrGroups(td.Attrs, pos)
	if err != nil {
		return schema.Record{}, err
	}
	fields, err := a.fieldDecls(td.Fields)
	if err != nil {
		return schema.Record{}, err
	}
	style, err := styleOf(td.Style, td.Fields, pos)
	if err != nil {
		return schema.Record{}, err
	}
	return schema.ResolveRecord(schema.RecordDecl{
		Name:   td.Name,
		Pos:    pos,
		Attrs:  attrs,
		Fields: fields,
		Style:  style,
	})
}

func (a *analyzer) resolveEnum(td *TypeDecl, pos string) (schema.Enum, error) {
	if len(td.Fields) > 0 {
		return schema.Enum{}, errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Pos(pos).
			Detail("enum %q cannot have fields; declare them on a variant", td.Name).
			Build()
	}
	attrs, err := attrGroups(td.Attrs, pos)
	if err != nil {
		return schema.Enum{}, err
	}
	decl := schema.EnumDecl{Name: td.Name, Pos: pos, Attrs: attrs}
	for i := range td.Variants {
		vs := &td.Variants[i]
		vpos := vs.pos(a.file.Path)
		vattrs, err := attrGroups(vs.Attrs, vpos)
		if err != nil {
			return schema.Enum{}, err
		}
		fields, err := a.fieldDecls(vs.Fields)
		if err != nil {
			return schema.Enum{}, err
		}
		style, err := styleOf(vs.Style, vs.Fields, vpos)
		if err != nil {
			return schema.Enum{}, err
		}
		decl.Variants = append(decl.Variants, schema.VariantDecl{
			Name:         vs.Name,
			Pos:          vpos,
			Discriminant: vs.Discriminant,
			Attrs:        vattrs,
			Fields:       fields,
			Style:        style,
		})
	}
	return schema.ResolveEnum(decl)
}

func (a *analyzer) resolveOpaque(td *TypeDecl, info *TypeInfo, pos string) error {
	switch {
	case len(td.Fields) > 0 || len(td.Variants) > 0:
		return errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Pos(pos).
			Detail("opaque type %q cannot have fields or variants", td.Name).
			Build()
	case len(td.Attrs) > 0:
		return errors.New(errors.PhaseResolve, errors.KindUnknownOption).
			Pos(pos).
			Detail("opaque type %q accepts no options", td.Name).
			Build()
	case td.Size != nil && td.MinSize != 0:
		return errors.New(errors.PhaseResolve, errors.KindConflictingOptions).
			Pos(pos).
			Detail("opaque type %q cannot have both 'size' and 'min_size'", td.Name).
			Build()
	case td.Size != nil && *td.Size < 0, td.MinSize < 0:
		return errors.New(errors.PhaseResolve, errors.KindInvalidLiteral).
			Pos(pos).
			Detail("size of opaque type %q is negative", td.Name).
			Build()
	}
	if td.Size != nil {
		info.Size = *td.Size
		info.MinSize = *td.Size
	} else {
		info.MinSize = td.MinSize
	}
	return nil
}

func (a *analyzer) fieldDecls(specs []FieldSpec) ([]schema.FieldDecl, error) {
	decls := make([]schema.FieldDecl, 0, len(specs))
	for i := range specs {
		fs := &specs[i]
		pos := fs.pos(a.file.Path)
		if strings.TrimSpace(fs.Type) == "" {
			return nil, errors.New(errors.PhaseResolve, errors.KindInvalidData).
				Pos(pos).
				Detail("field %q has no type", fs.Name).
				Build()
		}
		ref, err := schema.ParseType(fs.Type)
		if err != nil {
			return nil, at(err, pos)
		}
		attrs, err := attrGroups(fs.Attrs, pos)
		if err != nil {
			return nil, err
		}
		decls = append(decls, schema.FieldDecl{Name: fs.Name, Pos: pos, Type: ref, Attrs: attrs})
	}
	return decls, nil
}

func attrGroups(src Attrs, pos string) ([]schema.AttrGroup, error) {
	groups := make([]schema.AttrGroup, 0, len(src))
	for _, s := range src {
		g, err := schema.ParseAttrs(s, pos)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// styleOf parses an explicit style or infers one: no fields is unit, all
// fields named is named, otherwise positional.
func styleOf(name string, fields []FieldSpec, pos string) (schema.Style, error) {
	if name != "" {
		st, ok := schema.ParseStyle(name)
		if !ok {
			return 0, errors.New(errors.PhaseResolve, errors.KindInvalidLiteral).
				Pos(pos).
				Value(name).
				Detail("unknown style %q (want unit, positional or named)", name).
				Build()
		}
		return st, nil
	}
	if len(fields) == 0 {
		return schema.StyleUnit, nil
	}
	for _, f := range fields {
		if f.Name == "" {
			return schema.StylePositional, nil
		}
	}
	return schema.StyleNamed, nil
}

func at(err error, pos string) error {
	if e, ok := errors.AsError(err); ok && e.Pos == "" {
		e.Pos = pos
	}
	return err
}

// checkRefs reports references to undeclared or unrepresentable types.
func (a *analyzer) checkRefs(d *declared) {
	var records []schema.Record
	switch d.info.Kind {
	case KindRecord:
		records = append(records, d.record)
	case KindEnum:
		for _, v := range d.enum.Variants {
			records = append(records, v.Payload)
		}
	}
	for _, rec := range records {
		for _, f := range rec.Fields {
			if f.Skip {
				continue
			}
			if err := a.checkNode(f.Node, f.Pos); err != nil {
				a.fail(err)
			}
		}
	}
}

func (a *analyzer) checkNode(n schema.Node, pos string) error {
	if n.Elem != nil {
		if err := a.checkNode(*n.Elem, pos); err != nil {
			return err
		}
	}
	if n.Key != nil {
		if err := a.checkNode(*n.Key, pos); err != nil {
			return err
		}
	}
	if n.Kind != schema.KindOpaque {
		return nil
	}
	switch n.Ref.Form {
	case schema.FormNamed:
		if _, ok := a.decls[n.Ref.Name]; !ok {
			return errors.UnknownType(pos, n.Ref.Name)
		}
		return nil
	case schema.FormPointer:
		return a.checkNode(schema.Classify(n.Ref), pos)
	}
	return errors.New(errors.PhaseResolve, errors.KindUnsupported).
		Pos(pos).
		Value(n.Ref.String()).
		Detail("type %s cannot be declared inline; declare it by name", n.Ref).
		Build()
}

// minSize computes the minimum size of a named type depth first. A type
// reached again while its own size is being computed counts as 0.
func (a *analyzer) minSize(name string) int {
	d, ok := a.decls[name]
	if !ok {
		return 0
	}
	switch a.state[name] {
	case visiting:
		return 0
	case visited:
		return d.info.MinSize
	}
	a.state[name] = visiting
	sizes := func(ref schema.TypeRef) int {
		switch ref.Form {
		case schema.FormNamed:
			return a.minSize(ref.Name)
		case schema.FormPointer:
			return 1
		}
		return 0
	}
	switch d.info.Kind {
	case KindRecord:
		d.info.MinSize = derive.RecordMinSize(d.record, sizes)
	case KindEnum:
		d.info.MinSize = derive.EnumMinSize(d.enum, sizes)
	}
	a.state[name] = visited
	return d.info.MinSize
}

func (a *analyzer) program(d *declared) {
	var err error
	switch d.info.Kind {
	case KindRecord:
		d.info.Record, err = derive.Record(d.record, a.sizes)
	case KindEnum:
		d.info.Enum, err = derive.Enum(d.enum, a.sizes)
	}
	if err != nil {
		a.fail(err)
	}
}

func (a *analyzer) sizes(ref schema.TypeRef) int {
	switch ref.Form {
	case schema.FormNamed:
		if d, ok := a.decls[ref.Name]; ok {
			return d.info.MinSize
		}
	case schema.FormPointer:
		return 1
	}
	return 0
}
