// Package cache guarda respostas pequenas em memória com expiração fixa.
// Usado para o JSON de configurações da clínica, que muda raramente e é lido
// a cada carga de tela.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	data      []byte
	expiresAt int64
}

// TTL é um cache de bytes por chave. Entradas expiradas são removidas de
// forma preguiçosa no Get e varridas quando o mapa cresce.
type TTL struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
}

const sweepThreshold = 1024

// New cria o cache; cada entrada vale por ttl a partir do Set.
func New(ttl time.Duration) *TTL {
	return &TTL{entries: make(map[string]entry), ttl: ttl}
}

// Get devolve o valor da chave, ou nil se ausente ou expirado.
func (c *TTL) Get(key string) []byte {
	now := time.Now().UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if now > e.expiresAt {
		delete(c.entries, key)
		return nil
	}
	return e.data
}

// Set grava o valor. Quando o mapa passa do limite, varre expirados antes.
func (c *TTL) Set(key string, value []byte) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= sweepThreshold {
		cut := now.UnixNano()
		for k, e := range c.entries {
			if cut > e.expiresAt {
				delete(c.entries, k)
			}
		}
	}
	c.entries[key] = entry{data: value, expiresAt: now.Add(c.ttl).UnixNano()}
}

// Delete remove a chave, se existir.
func (c *TTL) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeletePrefix remove todas as chaves com o prefixo dado.
func (c *TTL) DeletePrefix(prefix string) {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
