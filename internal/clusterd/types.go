package clusterd

// Member is a node registered with the stackmeshd cluster daemon. Membership
// is authoritative on the daemon side; callers observe it to decide
// idempotency and never cache it across invocations.
type Member struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Status  string `json:"status"`
}
