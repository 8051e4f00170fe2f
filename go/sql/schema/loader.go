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

package schema

import (
	"bytes"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/druidplan/druidplan/go/sql/sqltypes"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// catalogFile is the on-disk catalog format:
//
//	namespaces:
//	  druid:
//	    tables:
//	      wikipedia:
//	        dataSource: wikipedia
//	        columns:
//	          - {name: __time, type: timestamp}
//	          - {name: page, type: string}
type catalogFile struct {
	Namespaces map[string]struct {
		Tables map[string]struct {
			DataSource string `json:"dataSource,omitempty"`
			Columns    []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"columns"`
		} `json:"tables"`
	} `json:"namespaces"`
}

// Parse decodes a YAML or JSON catalog.
func Parse(data []byte) (*Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, sqlerrors.New(sqlerrors.Configuration, "empty catalog")
	}
	var f catalogFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, sqlerrors.Errorf(sqlerrors.Configuration, "invalid catalog: %v", err)
	}

	var namespaces []*Namespace
	for nsName, ns := range f.Namespaces {
		var tables []*Table
		for tblName, tbl := range ns.Tables {
			t := &Table{Name: tblName, DataSource: tbl.DataSource}
			seen := map[string]bool{}
			for _, col := range tbl.Columns {
				if col.Name == "" {
					return nil, sqlerrors.Errorf(sqlerrors.Configuration, "table %s.%s: column without a name", nsName, tblName)
				}
				if seen[col.Name] {
					return nil, sqlerrors.Errorf(sqlerrors.Configuration, "table %s.%s: duplicate column %q", nsName, tblName, col.Name)
				}
				seen[col.Name] = true
				typ, err := sqltypes.ParseType(col.Type)
				if err != nil {
					return nil, sqlerrors.Errorf(sqlerrors.Configuration, "table %s.%s: %v", nsName, tblName, err)
				}
				t.Columns = append(t.Columns, Column{Name: col.Name, Type: typ})
			}
			tables = append(tables, t)
		}
		namespaces = append(namespaces, NewNamespace(nsName, tables...))
	}
	return NewSnapshot(namespaces...), nil
}

// LoadFile reads and parses the catalog at path.
func LoadFile(fs afero.Fs, path string) (*Snapshot, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, sqlerrors.Errorf(sqlerrors.Configuration, "cannot read catalog %s: %v", path, err)
	}
	return Parse(data)
}
