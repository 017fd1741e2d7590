package consolidate

import (
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/tables"
)

// messages rewrites the MSG calls of unit i whose connection path reaches a
// consolidated controller:
//
//	write: remote := local;
//	read:  local := remote;
//
// stmts are already renamed, so message tags are looked up by output name.
func (m *merger) messages(i int, stmts []ir.Stmt) []ir.Stmt {
	u := m.units[i]
	if len(u.Messages) == 0 {
		return stmts
	}
	byName := make(map[string]source.Message, len(u.Messages))
	for name, msg := range u.Messages {
		byName[fold(m.renamers[i].Tag(name))] = msg
	}
	return replace(stmts, func(s ir.Stmt) (ir.Stmt, bool) {
		ic, ok := s.(*ir.InstrCall)
		if !ok || !strings.EqualFold(ic.Func, tables.AuxMSG.String()) || len(ic.Target.Path) > 0 {
			return s, true
		}
		msg, ok := byName[fold(ic.Target.Name)]
		if !ok {
			return s, false
		}
		direct, ok := m.transfer(i, msg)
		if !ok {
			m.diags.Add(diag.Diagnostic{
				Code:     diag.CodeUnsupportedInstruction,
				Severity: diag.SeverityInfo,
				Message:  fmt.Sprintf("message %s kept on the MSG template: path %q reaches no consolidated controller", ic.Target.Name, msg.Path),
				Location: diag.Location{Controller: u.Program.Name},
				Details:  map[string]string{"instruction": tables.AuxMSG.String(), "tag": ic.Target.Name, "path": msg.Path},
			})
			m.logger.Info("message kept on template",
				"controller", u.Program.Name,
				"tag", ic.Target.Name,
				"path", msg.Path)
			return s, false
		}
		m.logger.Debug("message rewritten",
			"controller", u.Program.Name,
			"tag", ic.Target.Name,
			"path", msg.Path)
		return direct, false
	})
}

// transfer builds the direct assignment for a message sent by unit i.
func (m *merger) transfer(i int, msg source.Message) (*ir.Assign, bool) {
	remote, ok := m.channel(msg.Path)
	if !ok {
		return nil, false
	}
	localRef, err := source.ParseReference(msg.Local)
	if err != nil {
		return nil, false
	}
	remoteRef, err := source.ParseReference(msg.Remote)
	if err != nil {
		return nil, false
	}
	l := ir.RenameExpr(localRef, m.renamers[i]).(*ir.Ref)
	r := ir.RenameExpr(remoteRef, m.renamers[remote]).(*ir.Ref)
	if msg.Write {
		return &ir.Assign{Target: r, Value: l}, true
	}
	return &ir.Assign{Target: l, Value: r}, true
}

// channel returns the index of the controller a connection path reaches.
func (m *merger) channel(path string) (int, bool) {
	name, ok := m.cfg.Channel(path)
	if !ok {
		return 0, false
	}
	for i, u := range m.units {
		if strings.EqualFold(u.Program.Name, name) {
			return i, true
		}
	}
	return 0, false
}
