package syntax

import (
	"encoding/json"
	"io"
)

// FprintJSON writes a JSON representation of the AST to w.
func FprintJSON(w io.Writer, node Node) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(node))
}

type object = map[string]interface{}

func toJSON(node Node) interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *File:
		return object{
			"type":  "File",
			"decls": mapNodes(n.Decls),
		}

	case *VarDecl:
		m := object{
			"type": "VarDecl",
			"pos":  n.pos.String(),
			"name": n.Name,
		}
		if n.Type != "" {
			m["vartype"] = string(n.Type)
		}
		if len(n.Dims) > 0 {
			m["dims"] = n.Dims
		}
		if n.Value != nil {
			m["value"] = toJSON(n.Value)
		}
		return m

	case *FuncDecl:
		m := object{
			"type":   "FuncDecl",
			"pos":    n.pos.String(),
			"name":   n.Name,
			"result": string(n.Result),
			"params": mapNodes(n.Params),
		}
		if n.Body != nil {
			m["body"] = toJSON(n.Body)
		}
		return m

	case *Param:
		return object{
			"type":      "Param",
			"pos":       n.pos.String(),
			"name":      n.Name,
			"paramtype": string(n.Type),
		}

	case *BlockStmt:
		return object{
			"type":  "BlockStmt",
			"pos":   n.pos.String(),
			"stmts": mapNodes(n.Stmts),
		}

	case *IfStmt:
		m := object{
			"type": "IfStmt",
			"pos":  n.pos.String(),
			"cond": toJSON(n.Cond),
			"then": toJSON(n.Then),
		}
		if n.Else != nil {
			m["else"] = toJSON(n.Else)
		}
		return m

	case *WhileStmt:
		m := object{
			"type": "WhileStmt",
			"pos":  n.pos.String(),
			"cond": toJSON(n.Cond),
			"body": toJSON(n.Body),
		}
		if n.Update != nil {
			m["update"] = toJSON(n.Update)
		}
		return m

	case *ReturnStmt:
		m := object{
			"type": "ReturnStmt",
			"pos":  n.pos.String(),
		}
		if n.Result != nil {
			m["result"] = toJSON(n.Result)
		}
		return m

	case *BreakStmt:
		return object{"type": "BreakStmt", "pos": n.pos.String()}

	case *ContinueStmt:
		return object{"type": "ContinueStmt", "pos": n.pos.String()}

	case *ExprStmt:
		return object{"type": "ExprStmt", "pos": n.pos.String(), "x": toJSON(n.X)}

	case *PrintStmt:
		return object{"type": "PrintStmt", "pos": n.pos.String(), "x": toJSON(n.X)}

	case *AssertStmt:
		return object{"type": "AssertStmt", "pos": n.pos.String(), "x": toJSON(n.X)}

	case *IntegerLit:
		return object{"type": "IntegerLit", "pos": n.pos.String(), "value": n.Value}

	case *DoubleLit:
		return object{"type": "DoubleLit", "pos": n.pos.String(), "value": n.Value}

	case *StringLit:
		return object{"type": "StringLit", "pos": n.pos.String(), "value": n.Value}

	case *CharLit:
		return object{"type": "CharLit", "pos": n.pos.String(), "value": string([]byte{n.Value})}

	case *BoolLit:
		return object{"type": "BoolLit", "pos": n.pos.String(), "value": n.Value}

	case *Variable:
		return object{"type": "Variable", "pos": n.pos.String(), "name": n.Name}

	case *FuncRef:
		return object{"type": "FuncRef", "pos": n.pos.String(), "name": n.Name}

	case *Unary:
		return object{
			"type": "Unary",
			"pos":  n.pos.String(),
			"op":   n.Op.Kind.String(),
			"x":    toJSON(n.X),
		}

	case *Postfix:
		return object{
			"type": "Postfix",
			"pos":  n.pos.String(),
			"op":   n.Op.Kind.String(),
			"x":    toJSON(n.X),
		}

	case *Binary:
		return object{
			"type": "Binary",
			"pos":  n.pos.String(),
			"op":   n.Op.Kind.String(),
			"x":    toJSON(n.X),
			"y":    toJSON(n.Y),
		}

	case *Call:
		return object{
			"type": "Call",
			"pos":  n.pos.String(),
			"fun":  toJSON(n.Fun),
			"args": mapNodes(n.Args),
		}

	case *Index:
		return object{
			"type":    "Index",
			"pos":     n.pos.String(),
			"x":       toJSON(n.X),
			"indices": mapNodes(n.Indices),
		}

	default:
		return object{
			"type": "Unknown",
		}
	}
}

func mapNodes[T Node](s []T) []interface{} {
	result := make([]interface{}, len(s))
	for i, v := range s {
		result[i] = toJSON(v)
	}
	return result
}
