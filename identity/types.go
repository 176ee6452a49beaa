package identity

// UserProfile is the identity asserted by an external provider after it has
// verified the user's credentials.
type UserProfile struct {
	ID             string
	Email          string
	Name           string
	Roles          []string
	Permissions    []string
	Classification Classification
	Provider       string
	Attributes     map[string]string
}

// ClientInfo describes the client a session was created from.
type ClientInfo struct {
	IP        string
	UserAgent string
	DeviceID  string
	Platform  string
}

// DeviceInfo is the device descriptor presented at token issuance and again at
// validation when device binding is enabled.
type DeviceInfo struct {
	DeviceID    string
	Fingerprint string
	Platform    string
	BindingType string
}
