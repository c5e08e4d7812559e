package codec

import (
	"reflect"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wirecodec"
	"github.com/wippyai/wirecodec/derive"
	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

// DefaultMaxLength bounds decoded collection lengths.
const DefaultMaxLength = 1 << 27

const tagKey = "wire"

var (
	decodableType = reflect.TypeFor[wirecodec.Decodable]()
	encodableType = reflect.TypeFor[wirecodec.Encodable]()
	enumType      = reflect.TypeFor[wirecodec.Enum]()
	rawBytesType  = reflect.TypeFor[wire.RawBytes]()
	rawStringType = reflect.TypeFor[wire.RawString]()
	byteType      = reflect.TypeFor[byte]()
)

// Compiler turns Go types into plans. Plans are cached per type and safe for
// concurrent use.
type Compiler struct {
	cache     sync.Map // reflect.Type -> *Plan
	logger    *zap.Logger
	metrics   *Metrics
	maxLength int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the compiler's logger. The package logger is used
// otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		c.logger = l
	}
}

// WithMetrics reports compiles and failures to m.
func WithMetrics(m *Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// WithMaxLength bounds decoded collection lengths. Non-positive values keep
// the default.
func WithMaxLength(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxLength = n
		}
	}
}

// NewCompiler creates a compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = Logger()
	}
	return c
}

// Compile returns the plan for goType.
func (c *Compiler) Compile(goType reflect.Type) (*Plan, error) {
	if goType == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("Go type cannot be nil").
			Build()
	}

	if cached, ok := c.cache.Load(goType); ok {
		c.metrics.compiled("hit")
		return cached.(*Plan), nil
	}

	st := &compileState{c: c, inflight: make(map[reflect.Type]*Plan)}
	p, err := st.plan(goType)
	if err != nil {
		c.metrics.compiled("error")
		c.logger.Debug("plan compile failed", zap.Stringer("type", goType), zap.Error(err))
		return nil, err
	}

	for _, q := range st.order {
		q.finish()
	}
	for _, q := range st.order {
		c.cache.LoadOrStore(q.goType, q)
	}
	actual, _ := c.cache.Load(goType)
	c.metrics.compiled("miss")
	c.logger.Debug("plan compiled",
		zap.Stringer("type", goType),
		zap.Int("plans", len(st.order)),
		zap.Int("min_size", p.minSize))
	return actual.(*Plan), nil
}

// compileState tracks plans under construction. A type met again while its
// plan is being built resolves to the unfinished plan, which is how
// recursive types terminate.
type compileState struct {
	c        *Compiler
	inflight map[reflect.Type]*Plan
	order    []*Plan
}

func (s *compileState) plan(t reflect.Type) (*Plan, error) {
	if cached, ok := s.c.cache.Load(t); ok {
		return cached.(*Plan), nil
	}
	if p, ok := s.inflight[t]; ok {
		return p, nil
	}

	p := &Plan{goType: t, metrics: s.c.metrics, maxLength: s.c.maxLength}
	s.inflight[t] = p

	var err error
	switch {
	case isCustom(t):
		err = s.buildCustom(p)
	case isEnum(t):
		err = s.buildEnum(p)
	case t.Kind() == reflect.Struct:
		err = s.buildRecord(p)
	default:
		err = s.buildValue(p)
	}
	if err != nil {
		return nil, err
	}

	p.done = true
	s.order = append(s.order, p)
	return p, nil
}

func (s *compileState) buildCustom(p *Plan) error {
	p.kind = planCustom
	p.minSize = customMinSize(p.goType)
	return nil
}

func (s *compileState) buildValue(p *Plan) error {
	n := schema.Classify(refOf(p.goType))
	if n.Kind == schema.KindOpaque && !n.Optional {
		return errors.Unsupported(errors.PhaseCompile, "Go type "+p.goType.String())
	}
	types := map[string]reflect.Type{}
	if err := s.prepare(n, p.goType, types); err != nil {
		return err
	}
	sizes := s.sizes(types)
	steps, err := s.bind(derive.ValueOps(n, sizes), p.goType)
	if err != nil {
		return err
	}
	p.kind = planValue
	p.node = n
	p.value = steps
	p.minSize = derive.NodeMinSize(n, sizes)
	return nil
}

func (s *compileState) buildRecord(p *Plan) error {
	t := p.goType
	decls, index, err := structFields(t)
	if err != nil {
		return err
	}
	decl := schema.RecordDecl{Name: typeName(t), Pos: t.String(), Fields: decls, Style: schema.StyleNamed}
	if len(decls) == 0 {
		decl.Style = schema.StyleUnit
	}
	rec, err := schema.ResolveRecord(decl)
	if err != nil {
		return err
	}

	types := map[string]reflect.Type{}
	for i, f := range rec.Fields {
		if f.Skip {
			continue
		}
		if err := s.prepare(f.Node, t.Field(index[i]).Type, types); err != nil {
			return withPath(err, f.Name)
		}
	}
	prog, err := derive.Record(rec, s.sizes(types))
	if err != nil {
		return err
	}
	br, err := s.bindRecord(prog, t, index)
	if err != nil {
		return err
	}
	p.kind = planRecord
	p.record = prog
	p.rec = br
	p.minSize = prog.MinSize
	return nil
}

func (s *compileState) buildEnum(p *Plan) error {
	t := p.goType
	decl := schema.EnumDecl{Name: typeName(t), Pos: t.String()}
	var cases []boundCase
	var payloadIndex [][]int

	for i := range t.NumField() {
		f := t.Field(i)
		pos := t.String() + "." + f.Name
		if f.Name == "_" && f.Type == enumType {
			groups, err := fieldAttrs(f.Tag, t.String())
			if err != nil {
				return err
			}
			decl.Attrs = append(decl.Attrs, groups...)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if f.Type.Kind() != reflect.Pointer {
			return errors.TypeMismatch(errors.PhaseCompile, []string{typeName(t), f.Name}, f.Type.String(), "pointer to variant payload")
		}
		groups, err := fieldAttrs(f.Tag, pos)
		if err != nil {
			return err
		}

		payload := f.Type.Elem()
		vd := schema.VariantDecl{Name: f.Name, Pos: pos, Attrs: groups}
		bc := boundCase{name: f.Name, field: i, payload: payload}
		var index []int
		if payload.Kind() == reflect.Struct && !isCustom(payload) && !isEnum(payload) {
			vd.Fields, index, err = structFields(payload)
			if err != nil {
				return err
			}
			vd.Style = schema.StyleNamed
			if len(vd.Fields) == 0 {
				vd.Style = schema.StyleUnit
			}
		} else {
			vd.Style = schema.StylePositional
			vd.Fields = []schema.FieldDecl{{Pos: pos, Type: refOf(payload)}}
			bc.self = true
		}
		decl.Variants = append(decl.Variants, vd)
		cases = append(cases, bc)
		payloadIndex = append(payloadIndex, index)
	}

	en, err := schema.ResolveEnum(decl)
	if err != nil {
		return err
	}

	types := map[string]reflect.Type{}
	for i, v := range en.Variants {
		bc := &cases[i]
		for j, f := range v.Payload.Fields {
			if f.Skip {
				continue
			}
			ft := bc.payload
			if !bc.self {
				ft = bc.payload.Field(payloadIndex[i][j]).Type
			}
			if err := s.prepare(f.Node, ft, types); err != nil {
				return withPath(err, v.Name)
			}
		}
	}

	prog, err := derive.Enum(en, s.sizes(types))
	if err != nil {
		return err
	}
	for i := range prog.Cases {
		bc := &cases[i]
		bc.tag = prog.Cases[i].Variant.Tag
		var index []int
		if !bc.self {
			index = payloadIndex[i]
		}
		br, err := s.bindRecord(prog.Cases[i].Program, bc.payload, index)
		if err != nil {
			return withPath(err, bc.name)
		}
		bc.rec = br
	}

	p.kind = planEnum
	p.enum = prog
	p.cases = cases
	p.minSize = prog.MinSize
	return nil
}

// prepare compiles the plans a node delegates to and records the Go type
// behind each opaque reference for size lookups.
func (s *compileState) prepare(n schema.Node, t reflect.Type, types map[string]reflect.Type) error {
	if n.Optional {
		t = t.Elem()
	}
	switch n.Kind {
	case schema.KindOpaque:
		types[n.Ref.String()] = t
		if isCustom(t) {
			return nil
		}
		_, err := s.plan(t)
		return err
	case schema.KindSequence, schema.KindArray:
		return s.prepare(*n.Elem, t.Elem(), types)
	case schema.KindSet:
		return s.prepare(*n.Elem, t.Key(), types)
	case schema.KindMap:
		if err := s.prepare(*n.Key, t.Key(), types); err != nil {
			return err
		}
		return s.prepare(*n.Elem, t.Elem(), types)
	}
	return nil
}

func (s *compileState) sizes(types map[string]reflect.Type) derive.SizeFunc {
	return func(ref schema.TypeRef) int {
		t, ok := types[ref.String()]
		if !ok {
			return 0
		}
		if isCustom(t) {
			return customMinSize(t)
		}
		p, ok := s.inflight[t]
		if !ok {
			if cached, hit := s.c.cache.Load(t); hit {
				p = cached.(*Plan)
			}
		}
		if p == nil || !p.done {
			return 0
		}
		return p.minSize
	}
}

// finish sets element minimums once every plan the type reaches has its
// final size.
func (p *Plan) finish() {
	finishSteps(p.value)
	for i := range p.rec.fields {
		finishSteps(p.rec.fields[i].decode)
	}
	for i := range p.cases {
		for j := range p.cases[i].rec.fields {
			finishSteps(p.cases[i].rec.fields[j].decode)
		}
	}
}

func finishSteps(steps []step) {
	for i := range steps {
		st := &steps[i]
		finishSteps(st.elem)
		finishSteps(st.key)
		st.elemMin = max(st.op.ElemMin, stepsMin(st.key)+stepsMin(st.elem))
	}
}

// stepsMin is a lower bound on the bytes a bound element program reads.
func stepsMin(steps []step) int {
	n := 0
	for i := range steps {
		st := &steps[i]
		switch st.op.Code {
		case derive.OpPresence:
			return n + 1
		case derive.OpPrefix:
			n += len(st.op.Bytes)
		case derive.OpLength:
			n += st.op.Width.Size()
		case derive.OpPrimitive:
			n += st.op.Prim.Size()
		case derive.OpArray:
			n += st.op.Len * stepsMin(st.elem)
		case derive.OpDelegate:
			switch {
			case st.plan != nil:
				n += st.plan.minSize
			case st.custom:
				n += customMinSize(st.typ)
			}
		}
	}
	return n
}

func (s *compileState) bindRecord(prog *derive.RecordProgram, t reflect.Type, index []int) (boundRecord, error) {
	br := boundRecord{fields: make([]boundField, len(prog.Fields))}
	for i := range prog.Fields {
		fp := &prog.Fields[i]
		bf := boundField{prog: fp, name: fp.Field.Name, index: -1, goType: t}
		if index != nil {
			bf.index = index[i]
			bf.goType = t.Field(bf.index).Type
		}
		if bf.name == "" {
			bf.name = strconv.Itoa(i)
		}

		var err error
		if bf.decode, err = s.bind(fp.Decode, bf.goType); err != nil {
			return boundRecord{}, withPath(err, bf.name)
		}
		if bf.encode, err = s.bind(fp.Encode, bf.goType); err != nil {
			return boundRecord{}, withPath(err, bf.name)
		}
		for _, op := range fp.Decode {
			if op.Code == derive.OpLengthExpr {
				br.needsEnv = true
			}
		}
		br.fields[i] = bf
	}
	return br, nil
}

// bind pairs each op with the Go type it operates on.
func (s *compileState) bind(ops []derive.Op, t reflect.Type) ([]step, error) {
	steps := make([]step, len(ops))
	cur := t
	for i, op := range ops {
		st := step{op: op, typ: cur}
		var err error
		switch op.Code {
		case derive.OpPresence:
			cur = cur.Elem()
		case derive.OpSequence, derive.OpArray:
			st.bytes = cur.Elem() == byteType
			st.elem, err = s.bind(op.Elem, cur.Elem())
		case derive.OpSet:
			st.elem, err = s.bind(op.Elem, cur.Key())
		case derive.OpMap:
			if st.key, err = s.bind(op.Key, cur.Key()); err == nil {
				st.elem, err = s.bind(op.Elem, cur.Elem())
			}
		case derive.OpDelegate:
			if isCustom(cur) {
				st.custom = true
			} else {
				st.plan, err = s.plan(cur)
			}
		}
		if err != nil {
			return nil, err
		}
		steps[i] = st
	}
	return steps, nil
}

// structFields builds declarations for the exported fields of t, returning
// the struct index of each.
func structFields(t reflect.Type) ([]schema.FieldDecl, []int, error) {
	var decls []schema.FieldDecl
	var index []int
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		pos := t.String() + "." + f.Name
		groups, err := fieldAttrs(f.Tag, pos)
		if err != nil {
			return nil, nil, err
		}
		decls = append(decls, schema.FieldDecl{Name: f.Name, Pos: pos, Type: refOf(f.Type), Attrs: groups})
		index = append(index, i)
	}
	return decls, index, nil
}

func fieldAttrs(tag reflect.StructTag, pos string) ([]schema.AttrGroup, error) {
	var groups []schema.AttrGroup
	for _, src := range wireTags(tag) {
		g, err := schema.ParseAttrs(src, pos)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// wireTags returns every wire tag value in order. reflect.StructTag.Get only
// returns the first.
func wireTags(tag reflect.StructTag) []string {
	var out []string
	for tag != "" {
		i := 0
		for i < len(tag) && tag[i] == ' ' {
			i++
		}
		tag = tag[i:]
		if tag == "" {
			break
		}

		i = 0
		for i < len(tag) && tag[i] > ' ' && tag[i] != ':' && tag[i] != '"' && tag[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			break
		}
		name := string(tag[:i])
		tag = tag[i+1:]

		i = 1
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			break
		}
		quoted := string(tag[:i+1])
		tag = tag[i+1:]

		if name != tagKey {
			continue
		}
		if value, err := strconv.Unquote(quoted); err == nil {
			out = append(out, value)
		}
	}
	return out
}

// refOf describes a Go type structurally. Struct, custom and unsupported
// types are references by name.
func refOf(t reflect.Type) schema.TypeRef {
	return refOfSeen(t, map[reflect.Type]bool{})
}

func refOfSeen(t reflect.Type, seen map[reflect.Type]bool) schema.TypeRef {
	if isCustom(t) {
		return schema.TypeRef{Form: schema.FormNamed, Name: t.String(), Custom: true}
	}
	switch t {
	case rawBytesType:
		return schema.Named(schema.RawBytesName)
	case rawStringType:
		return schema.Named(schema.RawStringName)
	}

	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return schema.Basic(t.Kind().String())
	case reflect.Struct:
		return schema.TypeRef{Form: schema.FormStruct, Name: t.String(), Empty: t.NumField() == 0}
	}

	if seen[t] {
		return schema.TypeRef{Form: schema.FormOther, Name: t.String()}
	}
	seen[t] = true
	defer delete(seen, t)

	switch t.Kind() {
	case reflect.Pointer:
		return schema.PointerTo(refOfSeen(t.Elem(), seen))
	case reflect.Slice:
		return schema.SliceOf(refOfSeen(t.Elem(), seen))
	case reflect.Array:
		return schema.ArrayOf(t.Len(), refOfSeen(t.Elem(), seen))
	case reflect.Map:
		return schema.MapOf(refOfSeen(t.Key(), seen), refOfSeen(t.Elem(), seen))
	}
	return schema.TypeRef{Form: schema.FormOther, Name: t.String()}
}

func isCustom(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return false
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(decodableType) && pt.Implements(encodableType)
}

func isEnum(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := range t.NumField() {
		if f := t.Field(i); f.Name == "_" && f.Type == enumType {
			return true
		}
	}
	return false
}

func customMinSize(t reflect.Type) int {
	if s, ok := reflect.New(t).Interface().(wirecodec.Sizer); ok {
		return s.MinimumWireSize()
	}
	return 0
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
