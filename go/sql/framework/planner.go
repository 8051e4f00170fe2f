/*
Copyright 2025 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package framework

import (
	"github.com/pingcap/parser/ast"

	"github.com/druidplan/druidplan/go/sql/rel"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// state tracks how far a Planner got. Every step may run once, in order.
type state int

const (
	stateReady state = iota
	stateParsed
	stateValidated
	stateConverted
	stateTransformed
	stateClosed
)

var stateNames = [...]string{
	stateReady:       "READY",
	stateParsed:      "PARSED",
	stateValidated:   "VALIDATED",
	stateConverted:   "CONVERTED",
	stateTransformed: "TRANSFORMED",
	stateClosed:      "CLOSED",
}

func (s state) String() string {
	return stateNames[s]
}

// Planner plans a single statement. It is not safe for concurrent use and
// cannot be reused once a step has run.
type Planner struct {
	cfg   Config
	state state
}

// RelRoot is a logical plan with the names of its output fields.
type RelRoot struct {
	Rel    rel.Node
	Fields rel.RowType
}

// NewPlanner checks cfg and returns a planner ready to parse.
func NewPlanner(cfg Config) (*Planner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Planner{cfg: cfg}, nil
}

// Config returns the planner configuration.
func (p *Planner) Config() Config {
	return p.cfg
}

func (p *Planner) advance(from, to state) error {
	if p.state != from {
		return sqlerrors.Errorf(sqlerrors.Internal, "cannot move from %s to %s", p.state, to)
	}
	p.state = to
	return nil
}

// Parse parses one statement with the configured dialect.
func (p *Planner) Parse(sql string) (ast.StmtNode, error) {
	if err := p.advance(stateReady, stateParsed); err != nil {
		return nil, err
	}
	return p.cfg.Parser.Parse(sql)
}

// Validate resolves the statement against the default schema.
func (p *Planner) Validate(stmt ast.StmtNode) (*Validated, error) {
	if err := p.advance(stateParsed, stateValidated); err != nil {
		return nil, err
	}
	return validate(&p.cfg, stmt)
}

// Rel converts a validated statement to a logical plan.
func (p *Planner) Rel(v *Validated) (*RelRoot, error) {
	if err := p.advance(stateValidated, stateConverted); err != nil {
		return nil, err
	}
	return sqlToRel(&p.cfg, v)
}

// Transform runs the rule programs over root.
func (p *Planner) Transform(root rel.Node) (rel.Node, error) {
	if err := p.advance(stateConverted, stateTransformed); err != nil {
		return nil, err
	}
	env := &rel.Env{
		Executor:  p.cfg.Executor,
		Operators: p.cfg.Operators,
		OnRule:    p.cfg.OnRule,
	}
	return rel.RunPrograms(env, p.cfg.Programs, root)
}

// Close releases the planner. Any later step fails.
func (p *Planner) Close() {
	p.state = stateClosed
}
