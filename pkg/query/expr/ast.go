// Copyright 2026 The Sheetloom Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package expr

import "fmt"

// Resolver maps an identifier appearing in a derived expression to the
// quoted SQL fragment it stands for (a prior aggregation alias or a
// grouped-by column).
// ok is false for any identifier the caller has not declared.
type Resolver func(name string) (sql string, ok bool)

// Node is one AST node of a parsed derived expression. ToSQL walks the
// tree and re-serializes it into a SQL fragment with identifiers quoted
// through resolve and literals inlined, never delegating to another
// parser.
type Node interface {
	ToSQL(resolve Resolver) (string, error)
}

// NumberLit is a decimal or integer literal, inlined verbatim.
type NumberLit struct {
	Text string
}

func (n *NumberLit) ToSQL(Resolver) (string, error) {
	return n.Text, nil
}

// Ident is an identifier resolved against aggregation aliases or
// grouped-by columns.
type Ident struct {
	Name string
}

func (id *Ident) ToSQL(resolve Resolver) (string, error) {
	sql, ok := resolve(id.Name)
	if !ok {
		return "", fmt.Errorf("undeclared identifier %q in derived expression", id.Name)
	}
	return sql, nil
}

// BinaryExpr is a `left op right` node for one of + - * /.
type BinaryExpr struct {
	Op    TokenType
	Left  Node
	Right Node
}

func (b *BinaryExpr) ToSQL(resolve Resolver) (string, error) {
	left, err := b.Left.ToSQL(resolve)
	if err != nil {
		return "", err
	}
	right, err := b.Right.ToSQL(resolve)
	if err != nil {
		return "", err
	}

	if b.Op == TokenSlash {
		// Cast both operands to REAL so integer division produces a
		// fractional result instead of truncating (e.g.
		// quality_cnt / nullif(total, 0)).
		return fmt.Sprintf("(CAST(%s AS REAL) / CAST(%s AS REAL))", left, right), nil
	}

	var op string
	switch b.Op {
	case TokenPlus:
		op = "+"
	case TokenMinus:
		op = "-"
	case TokenStar:
		op = "*"
	default:
		return "", fmt.Errorf("unsupported binary operator %v", b.Op)
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

// Call is an invocation of one of the four whitelisted functions.
type Call struct {
	Name string
	Args []Node
}

func (c *Call) ToSQL(resolve Resolver) (string, error) {
	if !isAllowedFunction(c.Name) {
		return "", fmt.Errorf("function %q is not in the derived-expression allowlist", c.Name)
	}
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		sql, err := a.ToSQL(resolve)
		if err != nil {
			return "", err
		}
		args[i] = sql
	}
	joined := ""
	for i, a := range args {
		if i > 0 {
			joined += ", "
		}
		joined += a
	}
	return fmt.Sprintf("%s(%s)", sqlFunctionName(c.Name), joined), nil
}

func sqlFunctionName(name string) string {
	switch name {
	case "nullif", "NULLIF", "Nullif":
		return "NULLIF"
	case "coalesce", "COALESCE", "Coalesce":
		return "COALESCE"
	case "round", "ROUND", "Round":
		return "ROUND"
	case "abs", "ABS", "Abs":
		return "ABS"
	default:
		return name
	}
}
