package domain

import "time"

// BookSnapshot is the serialized form of an order book at a given version,
// used for caching and audit. Buys and Sells carry every order field,
// including the canonical filled price.
type BookSnapshot struct {
	Symbol    string    `json:"symbol"`
	Version   uint64    `json:"version"`
	Buys      []*Order  `json:"buys"`
	Sells     []*Order  `json:"sells"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *BookSnapshot) AllOrders() []*Order {
	all := make([]*Order, 0, len(s.Buys)+len(s.Sells))
	all = append(all, s.Buys...)
	all = append(all, s.Sells...)
	return all
}

func (s *BookSnapshot) DeepCopy() *BookSnapshot {
	c := &BookSnapshot{
		Symbol:    s.Symbol,
		Version:   s.Version,
		Timestamp: s.Timestamp,
	}
	for _, o := range s.Buys {
		c.Buys = append(c.Buys, o.Clone())
	}
	for _, o := range s.Sells {
		c.Sells = append(c.Sells, o.Clone())
	}
	return c
}
