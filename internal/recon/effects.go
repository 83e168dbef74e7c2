package recon

// EffectResult reports the outcome of a best-effort side effect
// (auto-publish, cart fan-out, event publish). Effects ride alongside the
// primary result and never fail the operation that spawned them.
type EffectResult struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Err  error  `json:"-"`
}
