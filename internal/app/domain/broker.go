package domain

// Method is how a broker's opt-out is performed.
type Method string

const (
	// MethodBrowser drives the broker's web form.
	MethodBrowser Method = "browser"
	// MethodEmail sends an opt-out email.
	MethodEmail Method = "email"
	// MethodManual requires the user to act on the broker site.
	MethodManual Method = "manual"
)

// Broker describes one data broker from the registry.
type Broker struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Method        Method `json:"method" yaml:"method"`
	Handler       string `json:"handler,omitempty" yaml:"handler,omitempty"`
	OptOutURL     string `json:"opt_out_url,omitempty" yaml:"opt_out_url,omitempty"`
	EmailAddress  string `json:"email_address,omitempty" yaml:"email_address,omitempty"`
	EmailSubject  string `json:"email_subject,omitempty" yaml:"email_subject,omitempty"`
	EmailTemplate string `json:"email_template,omitempty" yaml:"email_template,omitempty"`
}

// Outcome is the normalized result of one handler attempt.
type Outcome struct {
	Status Status `json:"status"`
	Notes  string `json:"notes"`
}
