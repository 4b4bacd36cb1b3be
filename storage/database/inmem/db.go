package inmemdb

import (
	"sync"

	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
)

// DB is a map-backed store guarded by a single lock, so multi-table writes (code issuing, imports)
// are serialised like database transactions.
type DB struct {
	mutex sync.RWMutex
	tables
}

type tables struct {
	users       map[string]user.User
	groups      map[string]catalog.Group
	areas       map[string]catalog.Area
	subareas    map[string]catalog.Subarea
	disciplines map[string]catalog.Discipline
	roadmaps    map[string]roadmap.Roadmap
}

func newTables() tables {
	return tables{
		users:       make(map[string]user.User),
		groups:      make(map[string]catalog.Group),
		areas:       make(map[string]catalog.Area),
		subareas:    make(map[string]catalog.Subarea),
		disciplines: make(map[string]catalog.Discipline),
		roadmaps:    make(map[string]roadmap.Roadmap),
	}
}

func Open() *DB {
	return &DB{tables: newTables()}
}

// snapshot copies every table; records are values so a shallow copy per map is enough.
func (t tables) snapshot() tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.groups {
		c.groups[k] = v
	}
	for k, v := range t.areas {
		c.areas[k] = v
	}
	for k, v := range t.subareas {
		c.subareas[k] = v
	}
	for k, v := range t.disciplines {
		c.disciplines[k] = v
	}
	for k, v := range t.roadmaps {
		c.roadmaps[k] = v
	}
	return c
}

// Truncate empties every table.
func (db *DB) Truncate() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.tables = newTables()
}
