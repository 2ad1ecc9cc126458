package enrichment

import (
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"transfer-dashboard/internal/common/logging"
	"transfer-dashboard/internal/storage"
)

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Size          int     `json:"size"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	PendingWrites int     `json:"pending_writes"`
}

// PlayerCache is an in-memory snapshot of the players table for a pipeline
// run. Entries never expire; a player fetched once is served from memory for
// the rest of the run, and newly fetched players are flushed back to storage
// in one batch at the end.
type PlayerCache struct {
	store storage.Storage
	cache *gocache.Cache

	mu      sync.Mutex
	hits    int64
	misses  int64
	pending map[int]*storage.Player

	logger logging.Logger
}

// NewPlayerCache creates an empty cache backed by store.
func NewPlayerCache(store storage.Storage, logger logging.Logger) *PlayerCache {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &PlayerCache{
		store:   store,
		cache:   gocache.New(gocache.NoExpiration, 0),
		pending: make(map[int]*storage.Player),
		logger:  logger,
	}
}

// Initialize bulk-loads every stored player so a run starts warm.
func (c *PlayerCache) Initialize() error {
	players, err := c.store.GetPlayers()
	if err != nil {
		return err
	}

	for _, player := range players {
		c.cache.Set(cacheKey(player.ID), player, gocache.NoExpiration)
	}

	c.logger.Info("player cache initialized",
		logging.Field{Key: "players", Value: len(players)},
	)
	return nil
}

// Get returns the cached player, never touching storage or the network.
func (c *PlayerCache) Get(playerID int) (*storage.Player, bool) {
	value, found := c.cache.Get(cacheKey(playerID))

	c.mu.Lock()
	if found {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	if !found {
		return nil, false
	}
	return value.(*storage.Player), true
}

// Put adds a freshly fetched player and queues it for the next Persist.
func (c *PlayerCache) Put(player *storage.Player) {
	c.cache.Set(cacheKey(player.ID), player, gocache.NoExpiration)

	c.mu.Lock()
	c.pending[player.ID] = player
	c.mu.Unlock()
}

// Persist writes queued players back to storage in one batch. The queue is
// only cleared on success so a failed flush is retried by the next call.
func (c *PlayerCache) Persist() error {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := make([]*storage.Player, 0, len(c.pending))
	for _, player := range c.pending {
		batch = append(batch, player)
	}
	c.mu.Unlock()

	if err := c.store.UpsertPlayers(batch); err != nil {
		return err
	}

	c.mu.Lock()
	for _, player := range batch {
		delete(c.pending, player.ID)
	}
	c.mu.Unlock()

	c.logger.Info("player cache persisted",
		logging.Field{Key: "players", Value: len(batch)},
	)
	return nil
}

// Stats reports hit/miss counters since construction.
func (c *PlayerCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}

	return CacheStats{
		Size:          c.cache.ItemCount(),
		Hits:          c.hits,
		Misses:        c.misses,
		HitRate:       rate,
		PendingWrites: len(c.pending),
	}
}

func cacheKey(playerID int) string {
	return strconv.Itoa(playerID)
}
