package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldValidate checks struct tags on descriptors. Initialized in init()
// with the closed-set validators.
var fieldValidate *validator.Validate

func init() {
	fieldValidate = validator.New()

	// Report fields by their JSON names so paths match the serialized form.
	fieldValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, fn := range map[string]validator.Func{
		"nodetype": validateNodeType,
		"edgetype": validateEdgeType,
	} {
		if err := fieldValidate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("workflow: registering %q validation: %v", tag, err))
		}
	}
}

func validateNodeType(fl validator.FieldLevel) bool {
	return NodeType(fl.Field().String()).Valid()
}

func validateEdgeType(fl validator.FieldLevel) bool {
	return EdgeType(fl.Field().String()).Valid()
}

// CheckFields runs the struct-tag checks on every node and edge and returns
// one diagnostic per failing field: WF-011 for an unknown edge type and
// WF-014 for everything else. It does not look at references between nodes
// and edges.
func CheckFields(cfg *Configuration) []Diagnostic {
	if cfg == nil {
		return []Diagnostic{errDiag(CodeField, ErrNilConfiguration.Error(), "")}
	}

	var diags []Diagnostic
	for i, nd := range cfg.Nodes {
		for _, fe := range structErrors(nd) {
			d := errDiag(CodeField, fieldMessage("node", nd.ID, fe), fmt.Sprintf("nodes[%d].%s", i, fe.Field()))
			d.NodeID = nd.ID
			diags = append(diags, d)
		}
	}
	for i, ed := range cfg.Edges {
		for _, fe := range structErrors(ed) {
			code := CodeField
			if fe.Tag() == "edgetype" {
				code = CodeUnknownEdgeType
			}
			d := errDiag(code, fieldMessage("edge", ed.ID, fe), fmt.Sprintf("edges[%d].%s", i, fe.Field()))
			d.EdgeID = ed.ID
			diags = append(diags, d)
		}
	}
	return diags
}

func structErrors(v any) validator.ValidationErrors {
	err := fieldValidate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return nil
}

func fieldMessage(kind, id string, fe validator.FieldError) string {
	subject := kind
	if id != "" {
		subject = fmt.Sprintf("%s %q", kind, id)
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is missing required field %q", subject, fe.Field())
	case "nodetype":
		return fmt.Sprintf("%s has unknown node type %q", subject, fe.Value())
	case "edgetype":
		return fmt.Sprintf("%s has unknown edge type %q", subject, fe.Value())
	}
	return fmt.Sprintf("%s field %q failed %q check", subject, fe.Field(), fe.Tag())
}
