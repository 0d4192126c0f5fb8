package game

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mhso/IntFar-sub002/internal/match"
)

// Registry manages all registered game modules
type Registry struct {
	mu      sync.RWMutex
	modules map[match.GameType]Module
}

// NewRegistry creates a new game registry
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[match.GameType]Module),
	}
}

// Register adds a game module to the registry
func (r *Registry) Register(module Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[module.Type()] = module
}

// Get retrieves a module by game type
func (r *Registry) Get(gameType match.GameType) (Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	module, ok := r.modules[gameType]
	if !ok {
		return nil, fmt.Errorf("unknown game type: %s", gameType)
	}
	return module, nil
}

// GetAll returns all registered modules ordered by game type
func (r *Registry) GetAll() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]Module, 0, len(r.modules))
	for _, module := range r.modules {
		modules = append(modules, module)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].Type() < modules[j].Type() })
	return modules
}

// List returns information about all registered games
func (r *Registry) List() []GameInfo {
	modules := r.GetAll()
	games := make([]GameInfo, 0, len(modules))
	for _, module := range modules {
		games = append(games, GameInfo{
			Type:        module.Type(),
			Name:        module.Name(),
			Description: module.Description(),
		})
	}
	return games
}

// GameInfo contains display information about a game
type GameInfo struct {
	Type        match.GameType
	Name        string
	Description string
}
