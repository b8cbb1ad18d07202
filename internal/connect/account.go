package connect

// LocalAccount is the provisioned/linked user entity. Owned by the external
// user store; this package reads it and requests mutations but never holds it
// beyond one connect attempt.
type LocalAccount struct {
	ID       string
	TenantID string

	Email     string
	FirstName string
	LastName  string
	Male      bool

	EmailVerified bool
	PasswordReset bool
	AgreedToTerms bool

	ScreenName string
	Locale     string

	// Birthday: solo mes/día importan semánticamente; el año se preserva tal
	// cual está almacenado (default 1970 para cuentas provisionadas).
	BirthdayMonth int
	BirthdayDay   int
	BirthdayYear  int

	ReminderQuestion string
	ReminderAnswer   string

	JobTitle string

	// Social identifiers (sms, skype, twitter, ...) se preservan verbatim en
	// cada sync: vienen del registro local, nunca del perfil remoto.
	Social map[string]string
}

// NewAccount carries the field set for account creation. The store assigns ID.
type NewAccount struct {
	Email     string
	FirstName string
	LastName  string
	Male      bool

	ScreenName   string
	PasswordHash string
	Locale       string

	BirthdayMonth int
	BirthdayDay   int
	BirthdayYear  int

	ReminderQuestion string
	ReminderAnswer   string

	EmailVerified bool
	PasswordReset bool
	AgreedToTerms bool
}
