// Package provider maps mailbox domains to the mail provider operating them
// and carries the per-provider probe interval table.
package provider

import (
	"sort"
	"strings"
	"time"
)

// Key identifies a mail provider. Unrecognized domains use the lowercased
// domain itself as their key.
type Key string

// DefaultInterval applies to providers without an explicit interval.
const DefaultInterval = 300 * time.Millisecond

// DefaultDomains groups well-known mailbox domains by provider.
var DefaultDomains = map[string]Key{
	"gmail.com":      "google",
	"googlemail.com": "google",

	"outlook.com": "microsoft",
	"hotmail.com": "microsoft",
	"live.com":    "microsoft",
	"msn.com":     "microsoft",

	"yahoo.com":     "yahoo",
	"yahoo.co.jp":   "yahoo",
	"yahoomail.com": "yahoo",

	"icloud.com": "apple",
	"me.com":     "apple",
	"mac.com":    "apple",

	"qq.com":      "tencent",
	"foxmail.com": "tencent",

	"163.com":  "netease",
	"126.com":  "netease",
	"yeah.net": "netease",

	"sina.com":    "sina",
	"sina.cn":     "sina",
	"sina.com.cn": "sina",

	"sohu.com": "sohu",
	"sohu.net": "sohu",

	"protonmail.com": "proton",
	"protonmail.ch":  "proton",
	"pm.me":          "proton",

	"aliyun.com":  "alibaba",
	"alimail.com": "alibaba",

	"139.com":  "china_mobile",
	"wo.cn":    "china_unicom",
	"21cn.com": "21cn",
	"tom.com":  "tom",

	"zoho.com":   "zoho",
	"mail.com":   "mail_com",
	"yandex.com": "yandex",
	"yandex.ru":  "yandex",
}

// DefaultIntervals holds the providers known to throttle more or less than
// the default.
var DefaultIntervals = map[Key]time.Duration{
	"google":    300 * time.Millisecond,
	"microsoft": 300 * time.Millisecond,
	"yahoo":     300 * time.Millisecond,
	"tencent":   200 * time.Millisecond,
	"netease":   200 * time.Millisecond,
}

// Catalog is an immutable provider lookup table. The zero value and a nil
// Catalog behave as an empty table with DefaultInterval.
type Catalog struct {
	domains   map[string]Key
	intervals map[Key]time.Duration
	fallback  time.Duration
}

// Overrides layers extra mappings over the built-in tables.
type Overrides struct {
	Domains         map[string]string
	Intervals       map[string]time.Duration
	DefaultInterval time.Duration
}

// Entry describes one provider for listings.
type Entry struct {
	Provider Key           `json:"provider"`
	Interval time.Duration `json:"interval"`
	Domains  []string      `json:"domains"`
}

// Default returns the catalog built from the built-in tables.
func Default() *Catalog {
	return New()
}

// New builds a catalog from the built-in tables with each override applied
// in order. Later overrides win.
func New(overrides ...Overrides) *Catalog {
	c := &Catalog{
		domains:   make(map[string]Key, len(DefaultDomains)),
		intervals: make(map[Key]time.Duration, len(DefaultIntervals)),
		fallback:  DefaultInterval,
	}
	for domain, key := range DefaultDomains {
		c.domains[domain] = key
	}
	for key, interval := range DefaultIntervals {
		c.intervals[key] = interval
	}

	for _, o := range overrides {
		for domain, key := range o.Domains {
			domain = normalize(domain)
			k := Key(normalize(key))
			if domain == "" || k == "" {
				continue
			}
			c.domains[domain] = k
		}
		for key, interval := range o.Intervals {
			k := Key(normalize(key))
			if k == "" || interval < 0 {
				continue
			}
			c.intervals[k] = interval
		}
		if o.DefaultInterval > 0 {
			c.fallback = o.DefaultInterval
		}
	}

	return c
}

// Resolve returns the provider key for a mailbox domain.
func (c *Catalog) Resolve(domain string) Key {
	domain = normalize(domain)
	if c != nil {
		if key, ok := c.domains[domain]; ok {
			return key
		}
	}
	return Key(domain)
}

// Interval returns the minimum probe spacing for a provider.
func (c *Catalog) Interval(key Key) time.Duration {
	if c == nil {
		return DefaultInterval
	}
	if interval, ok := c.intervals[key]; ok {
		return interval
	}
	return c.fallback
}

// Fallback returns the interval used for providers without an entry.
func (c *Catalog) Fallback() time.Duration {
	if c == nil {
		return DefaultInterval
	}
	return c.fallback
}

// Entries lists every provider with a domain mapping or an explicit
// interval, sorted by key.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}

	grouped := make(map[Key][]string)
	for domain, key := range c.domains {
		grouped[key] = append(grouped[key], domain)
	}
	for key := range c.intervals {
		if _, ok := grouped[key]; !ok {
			grouped[key] = nil
		}
	}

	entries := make([]Entry, 0, len(grouped))
	for key, domains := range grouped {
		sort.Strings(domains)
		entries = append(entries, Entry{
			Provider: key,
			Interval: c.Interval(key),
			Domains:  domains,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Provider < entries[j].Provider
	})
	return entries
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
