package migration

import (
	"context"

	"github.com/kkkkikiki/quizgift/internal/settings"
)

// TableState reports which of a legacy/current pair exist
type TableState struct {
	Legacy        string
	LegacyExists  bool
	Current       string
	CurrentExists bool
}

// State summarises the schema as seen by the migration
type State struct {
	Tables             []TableState
	Participants       string
	ParticipantsExists bool
	Version            string
}

// Pending reports whether a forward run would still rename something
func (s *State) Pending() bool {
	for _, t := range s.Tables {
		if t.LegacyExists && !t.CurrentExists {
			return true
		}
	}
	return !s.ParticipantsExists || s.Version != SchemaVersion
}

// State inspects the catalog without changing anything
func (m *Migrator) State(ctx context.Context) (*State, error) {
	c := newCatalog(m.db, false)
	state := &State{Participants: m.db.Tables.Participants()}

	for _, pair := range m.db.Tables.RenamePairs() {
		ts := TableState{Legacy: pair.Old, Current: pair.New}
		var err error
		if ts.LegacyExists, err = c.tableExists(ctx, pair.Old); err != nil {
			return nil, err
		}
		if ts.CurrentExists, err = c.tableExists(ctx, pair.New); err != nil {
			return nil, err
		}
		state.Tables = append(state.Tables, ts)
	}

	var err error
	if state.ParticipantsExists, err = c.tableExists(ctx, state.Participants); err != nil {
		return nil, err
	}

	optionsExist, err := c.tableExists(ctx, m.db.Tables.Options())
	if err != nil {
		return nil, err
	}
	if optionsExist {
		version, _, err := m.options.GetOption(ctx, m.db.Conn, settings.DBVersionOption)
		if err != nil {
			return nil, err
		}
		state.Version = version
	}
	return state, nil
}
