package limiter

import "fmt"

// Key builders fix the coordination-store key layout exactly, so that two
// workers computing the same scope always land on the same Redis key.

func GlobalRPMKey() string          { return "lim:global:rpm" }
func GlobalConcurrencyKey() string  { return "lim:global:conc" }
func CredentialRPMKey(id string) string         { return fmt.Sprintf("lim:key:%s:rpm", id) }
func CredentialConcurrencyKey(id string) string { return fmt.Sprintf("lim:key:%s:inflight", id) }
func TenantRPMKey(id string) string         { return fmt.Sprintf("lim:tenant:%s:rpm", id) }
func TenantConcurrencyKey(id string) string { return fmt.Sprintf("lim:tenant:%s:conc", id) }
