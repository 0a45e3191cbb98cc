// Copyright 2026 The Kishu Authors
// This file is part of Kishu.
//
// Kishu is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Kishu is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Kishu. If not, see <http://www.gnu.org/licenses/>.

package ahg

import (
	json "github.com/goccy/go-json"

	"github.com/kishu-project/kishu/kishuerr"
)

// wireAHG is the portable encoding of an AHG: the two arenas plus the
// active map, keyed by dense integer id so the decoded graph can resume
// id/cell_num assignment exactly where the encoded one left off (I-ORDER,
// I-VSID).
type wireAHG struct {
	CEs           []CellExecution          `json:"ces"`
	VSs           []wireVS                 `json:"vss"`
	Active        map[VariableName]int     `json:"active"`
	LastVSForName map[VariableName]int     `json:"last_vs_for_name"`
}

// wireVS mirrors VariableSnapshot but exposes the unexported prevVS field,
// since prevVS chains must survive a Serialize/Deserialize cycle too.
type wireVS struct {
	ID        int             `json:"id"`
	Names     []VariableName  `json:"names"`
	Version   int64           `json:"version"`
	Size      uint64          `json:"size"`
	SizeKnown bool            `json:"size_known"`
	OutputCE  int             `json:"output_ce"`
	Deleted   bool            `json:"deleted"`
	PrevVS    int             `json:"prev_vs"`
}

// Serialize round-trips the AHG through a portable JSON encoding. The
// result is an opaque string exchanged with the external commit ledger,
// keyed by commit_id.
func (g *AHG) Serialize() (string, error) {
	w := wireAHG{
		CEs:           g.ces,
		Active:        g.active,
		LastVSForName: g.lastVSForName,
	}
	w.VSs = make([]wireVS, len(g.vss))
	for i, vs := range g.vss {
		w.VSs[i] = wireVS{
			ID: vs.ID, Names: vs.Names, Version: vs.Version, Size: vs.Size,
			SizeKnown: vs.SizeKnown, OutputCE: vs.OutputCE, Deleted: vs.Deleted, PrevVS: vs.prevVS,
		}
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", kishuerr.Wrapf(kishuerr.ErrAHGDeserialization, "marshal: %v", err)
	}
	return string(b), nil
}

// Deserialize decodes s produced by Serialize. deserialize(serialize(g)) is
// structurally equal to g.
func Deserialize(s string) (*AHG, error) {
	var w wireAHG
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return nil, kishuerr.Wrapf(kishuerr.ErrAHGDeserialization, "unmarshal: %v", err)
	}
	g := New()
	g.ces = w.CEs
	g.active = w.Active
	g.lastVSForName = w.LastVSForName
	if g.active == nil {
		g.active = map[VariableName]int{}
	}
	if g.lastVSForName == nil {
		g.lastVSForName = map[VariableName]int{}
	}
	g.vss = make([]VariableSnapshot, len(w.VSs))
	for i, wvs := range w.VSs {
		g.vss[i] = VariableSnapshot{
			ID: wvs.ID, Names: wvs.Names, Version: wvs.Version, Size: wvs.Size,
			SizeKnown: wvs.SizeKnown, OutputCE: wvs.OutputCE, Deleted: wvs.Deleted, prevVS: wvs.PrevVS,
		}
	}
	return g, nil
}
