package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/opfixture/internal/fixture"
	"github.com/roach88/opfixture/internal/ir"
)

// CompileFixture parses a CUE value into a fixture model.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the fixture struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`fixture: mul_broadcast_float16: { ... }`)
//	m, err := CompileFixture(v.LookupPath(cue.ParsePath("fixture.mul_broadcast_float16")))
//
// Declarations inside model.inputs, model.scalars and model.outputs are
// registered in CUE field order.
func CompileFixture(v cue.Value) (*ir.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var name string
	if sels := v.Path().Selectors(); len(sels) > 0 {
		name = sels[len(sels)-1].String()
	}

	var opts []fixture.Option
	if vv := v.LookupPath(cue.ParsePath("version")); vv.Exists() {
		version, err := vv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		opts = append(opts, fixture.WithVersion(version))
	}
	if rv := v.LookupPath(cue.ParsePath("relaxed")); rv.Exists() {
		relaxed, err := rv.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		opts = append(opts, fixture.WithRelaxed(relaxed))
	}
	b := fixture.NewBuilder(name, opts...)

	model := v.LookupPath(cue.ParsePath("model"))
	if !model.Exists() {
		return nil, &CompileError{Field: "model", Message: "model is required", Pos: v.Pos()}
	}

	if err := compileTensors(model.LookupPath(cue.ParsePath("inputs")), "inputs", b.DeclareInput); err != nil {
		return nil, err
	}
	if err := compileTensors(model.LookupPath(cue.ParsePath("outputs")), "outputs", b.DeclareOutput); err != nil {
		return nil, err
	}
	if err := compileScalars(model.LookupPath(cue.ParsePath("scalars")), b); err != nil {
		return nil, err
	}
	if err := compileOperation(model, b); err != nil {
		return nil, err
	}
	if err := compileExamples(v, b); err != nil {
		return nil, err
	}

	m, err := b.Build()
	if err != nil {
		return nil, &CompileError{Field: "fixture", Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return m, nil
}

func compileTensors(v cue.Value, field string, declare declareFunc) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		tv := iter.Value()
		path := field + "." + name

		typeName, err := tv.LookupPath(cue.ParsePath("type")).String()
		if err != nil {
			return &CompileError{Field: path + ".type", Message: "type is required", Pos: tv.Pos()}
		}
		shape, err := compileShape(tv.LookupPath(cue.ParsePath("shape")))
		if err != nil {
			return &CompileError{Field: path + ".shape", Message: err.Error(), Pos: tv.Pos()}
		}

		decl := TensorDecl{Name: name, Type: typeName, Shape: ShapeField(shape)}
		if sv := tv.LookupPath(cue.ParsePath("scale")); sv.Exists() {
			if decl.Scale, err = sv.Float64(); err != nil {
				return formatCUEError(err)
			}
		}
		if zv := tv.LookupPath(cue.ParsePath("zero_point")); zv.Exists() {
			if decl.ZeroPoint, err = zv.Int64(); err != nil {
				return formatCUEError(err)
			}
		}

		if err := declareTensor(declare, decl); err != nil {
			return &CompileError{Field: path, Message: err.Error(), Pos: tv.Pos(), Err: err}
		}
	}
	return nil
}

// compileShape accepts a list of ints or the string form "{1, 2}".
func compileShape(v cue.Value) (ir.Shape, error) {
	if !v.Exists() {
		return nil, fmt.Errorf("shape is required")
	}
	if text, err := v.String(); err == nil {
		return ir.ParseShape(text)
	}

	iter, err := v.List()
	if err != nil {
		return nil, fmt.Errorf("shape must be a list or a string like \"{1, 2}\"")
	}
	shape := ir.Shape{}
	for iter.Next() {
		d, err := iter.Value().Int64()
		if err != nil {
			return nil, fmt.Errorf("dimension %d: %w", len(shape), err)
		}
		shape = append(shape, int(d))
	}
	return shape, nil
}

// compileScalars accepts either `name: {type: "INT32", value: 0}` or the
// shorthand `name: 0`, which infers the type from the literal.
func compileScalars(v cue.Value, b *fixture.Builder) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		sv := iter.Value()

		var typeName string
		valueVal := sv
		if sv.IncompleteKind() == cue.StructKind {
			if tv := sv.LookupPath(cue.ParsePath("type")); tv.Exists() {
				if typeName, err = tv.String(); err != nil {
					return formatCUEError(err)
				}
			}
			valueVal = sv.LookupPath(cue.ParsePath("value"))
			if !valueVal.Exists() {
				return &CompileError{Field: "scalars." + name + ".value", Message: "value is required", Pos: sv.Pos()}
			}
		}

		lit, err := cueLiteral(valueVal)
		if err != nil {
			return &CompileError{Field: "scalars." + name, Message: err.Error(), Pos: valueVal.Pos()}
		}
		if err := declareScalar(b, name, typeName, lit); err != nil {
			return &CompileError{Field: "scalars." + name, Message: err.Error(), Pos: sv.Pos(), Err: err}
		}
	}
	return nil
}

func compileOperation(model cue.Value, b *fixture.Builder) error {
	ov := model.LookupPath(cue.ParsePath("operation"))
	if !ov.Exists() {
		return &CompileError{Field: "operation", Message: "operation is required", Pos: model.Pos()}
	}

	opType, err := ov.LookupPath(cue.ParsePath("type")).String()
	if err != nil {
		return &CompileError{Field: "operation.type", Message: "type is required", Pos: ov.Pos()}
	}
	inputs, err := stringList(ov.LookupPath(cue.ParsePath("inputs")))
	if err != nil {
		return &CompileError{Field: "operation.inputs", Message: err.Error(), Pos: ov.Pos()}
	}
	outputs, err := stringList(ov.LookupPath(cue.ParsePath("outputs")))
	if err != nil {
		return &CompileError{Field: "operation.outputs", Message: err.Error(), Pos: ov.Pos()}
	}

	if _, err := b.BuildOperation(opType, inputs, outputs); err != nil {
		return &CompileError{Field: "operation", Message: err.Error(), Pos: ov.Pos(), Err: err}
	}
	return nil
}

func compileExamples(v cue.Value, b *fixture.Builder) error {
	ev := v.LookupPath(cue.ParsePath("examples"))
	if !ev.Exists() {
		return nil
	}
	iter, err := ev.List()
	if err != nil {
		return formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		ex := iter.Value()
		field := fmt.Sprintf("examples[%d]", i)

		in, err := cueBinding(ex.LookupPath(cue.ParsePath("inputs")))
		if err != nil {
			return &CompileError{Field: field + ".inputs", Message: err.Error(), Pos: ex.Pos(), Err: err}
		}
		out, err := cueBinding(ex.LookupPath(cue.ParsePath("outputs")))
		if err != nil {
			return &CompileError{Field: field + ".outputs", Message: err.Error(), Pos: ex.Pos(), Err: err}
		}
		if _, err := b.AddExample(in, out); err != nil {
			return &CompileError{Field: field, Message: err.Error(), Pos: ex.Pos(), Err: err}
		}
	}
	return nil
}

func cueBinding(v cue.Value) (ir.Binding, error) {
	binding := ir.Binding{}
	if !v.Exists() {
		return binding, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		list, err := iter.Value().List()
		if err != nil {
			return nil, fmt.Errorf("%s: values must be a flat list", name)
		}
		lits := []ir.Literal{}
		for list.Next() {
			l, err := cueLiteral(list.Value())
			if err != nil {
				return nil, &fixture.TypeMismatchError{Name: name, Index: len(lits), Err: err}
			}
			lits = append(lits, l)
		}
		binding[name] = lits
	}
	return binding, nil
}

// cueLiteral converts a concrete CUE number, bool, or special-value string.
func cueLiteral(v cue.Value) (ir.Literal, error) {
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, err
		}
		return ir.IntLiteral(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return ir.FloatLiteral(f), nil
	case cue.BoolKind:
		bv, err := v.Bool()
		if err != nil {
			return nil, err
		}
		return ir.BoolLiteral(bv), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		return ir.LiteralFromAny(s)
	default:
		return nil, fmt.Errorf("expected a concrete number or bool, got %s", v.IncompleteKind())
	}
}

func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, fmt.Errorf("expected a list of names")
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, fmt.Errorf("expected a list of names")
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error // underlying interpreter error, if any
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
