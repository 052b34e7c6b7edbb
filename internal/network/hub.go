package network

import "sync"

// Hub enforces the total and per-IP connection caps.
type Hub struct {
	mu         sync.Mutex
	ipConns    map[string]int
	totalConns int
	maxTotal   int
	maxPerIP   int
}

// NewHub creates a hub allowing maxTotal connections, at most maxPerIP from one address.
func NewHub(maxTotal, maxPerIP int) *Hub {
	return &Hub{
		ipConns:  make(map[string]int),
		maxTotal: maxTotal,
		maxPerIP: maxPerIP,
	}
}

// Acquire reserves a slot for ip. It reports false when a cap is reached.
func (h *Hub) Acquire(ip string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.maxTotal > 0 && h.totalConns >= h.maxTotal {
		return false
	}
	if h.maxPerIP > 0 && h.ipConns[ip] >= h.maxPerIP {
		return false
	}
	h.ipConns[ip]++
	h.totalConns++
	return true
}

// Release frees a slot taken by Acquire.
func (h *Hub) Release(ip string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalConns
}
