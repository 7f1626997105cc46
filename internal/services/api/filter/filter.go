// Package filter translates AIP-160 filter expressions over tariffs into SQL.
package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
)

// TariffDeclarations returns the field declarations for tariff filtering.
// The identifiers true and false are declared so boolean fields can be
// compared explicitly.
func TariffDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("origin_country", filtering.TypeString),
		filtering.DeclareIdent("dest_country", filtering.TypeString),
		filtering.DeclareIdent("hts_code", filtering.TypeString),
		filtering.DeclareIdent("effective_date", filtering.TypeString),
		filtering.DeclareIdent("expiry_date", filtering.TypeString),
		filtering.DeclareIdent("ad_valorem_rate", filtering.TypeFloat),
		filtering.DeclareIdent("enabled", filtering.TypeBool),
		filtering.DeclareIdent("user_defined", filtering.TypeBool),
		filtering.DeclareIdent("true", filtering.TypeBool),
		filtering.DeclareIdent("false", filtering.TypeBool),
	)
}

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "t.origin_country = ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// Empty reports whether the condition matches everything.
func (c SQLCondition) Empty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

type column struct {
	sql      string
	upper    bool
	isBool   bool
	viaLink  bool
	nullable bool
}

// fieldMapping maps filter field names to tariff table columns.
var fieldMapping = map[string]column{
	"origin_country":  {sql: "t.origin_country", upper: true},
	"dest_country":    {sql: "t.dest_country", upper: true},
	"hts_code":        {sql: "tp.hts_code", viaLink: true},
	"effective_date":  {sql: "t.effective_date"},
	"expiry_date":     {sql: "t.expiry_date", nullable: true},
	"ad_valorem_rate": {sql: "t.ad_valorem_rate"},
	"enabled":         {sql: "t.enabled", isBool: true},
	"user_defined":    {sql: "t.user_defined", isBool: true},
}

// ParseTariffFilter parses an AIP-160 filter expression and returns a SQL
// condition over the tariffs table aliased as t. Returns an empty condition
// for an empty filter string.
func ParseTariffFilter(filterStr string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}

	decls, err := TariffDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, invalid(err.Error())
	}

	cond, err := translateExpr(parsed.CheckedExpr.GetExpr())
	if err != nil {
		return SQLCondition{}, invalid(err.Error())
	}
	return cond, nil
}

func invalid(message string) error {
	return apperrors.New(apperrors.CodeInvalidFilter, "invalid filter: "+message)
}

// translateExpr translates a CEL expression to a SQL condition.
func translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		// A bare boolean field: `enabled`.
		return translateBoolIdent(kind.IdentExpr.GetName(), true)
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

// translateCall translates a CEL function call to a SQL condition.
func translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.Function {
	case filtering.FunctionAnd, "_&&_":
		return translateJunction(call.Args, "AND")
	case filtering.FunctionOr, "_||_":
		return translateJunction(call.Args, "OR")
	case filtering.FunctionNot:
		return translateNot(call.Args)
	case filtering.FunctionEquals, "_==_":
		return translateComparison(call.Args, "=")
	case filtering.FunctionNotEquals, "_!=_":
		return translateComparison(call.Args, "!=")
	case filtering.FunctionLessThan, "_<_":
		return translateComparison(call.Args, "<")
	case filtering.FunctionLessEquals, "_<=_":
		return translateComparison(call.Args, "<=")
	case filtering.FunctionGreaterThan, "_>_":
		return translateComparison(call.Args, ">")
	case filtering.FunctionGreaterEquals, "_>=_":
		return translateComparison(call.Args, ">=")
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateJunction(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}

	left, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	right, err := translateExpr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	params := make([]any, 0, len(left.Params)+len(right.Params))
	params = append(params, left.Params...)
	params = append(params, right.Params...)
	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: params,
	}, nil
}

func translateNot(args []*expr.Expr) (SQLCondition, error) {
	if len(args) != 1 {
		return SQLCondition{}, fmt.Errorf("NOT requires 1 argument")
	}
	if ident, ok := args[0].ExprKind.(*expr.Expr_IdentExpr); ok {
		return translateBoolIdent(ident.IdentExpr.GetName(), false)
	}
	inner, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	return SQLCondition{
		Clause: fmt.Sprintf("NOT %s", inner.Clause),
		Params: inner.Params,
	}, nil
}

func translateBoolIdent(name string, want bool) (SQLCondition, error) {
	col, ok := fieldMapping[name]
	if !ok || !col.isBool {
		return SQLCondition{}, fmt.Errorf("%s is not a boolean field", name)
	}
	return SQLCondition{
		Clause: fmt.Sprintf("%s = ?", col.sql),
		Params: []any{boolParam(want)},
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	col, ok := fieldMapping[field]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	if col.isBool {
		b, ok := value.(bool)
		if !ok {
			return SQLCondition{}, fmt.Errorf("%s must be compared with true or false", field)
		}
		value = boolParam(b)
	}
	if s, ok := value.(string); ok && col.upper {
		value = strings.ToUpper(strings.TrimSpace(s))
	}

	clause := fmt.Sprintf("%s %s ?", col.sql, op)
	switch {
	case col.viaLink:
		clause = fmt.Sprintf("t.id IN (SELECT tp.tariff_id FROM tariff_products tp WHERE %s)", clause)
	case col.nullable && op == "!=":
		clause = fmt.Sprintf("(%s IS NULL OR %s)", col.sql, clause)
	}
	return SQLCondition{
		Clause: clause,
		Params: []any{value},
	}, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_IdentExpr:
		switch kind.IdentExpr.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("expected constant, got identifier %s", kind.IdentExpr.Name)
	default:
		return nil, fmt.Errorf("expected constant, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

func boolParam(b bool) int {
	if b {
		return 1
	}
	return 0
}
