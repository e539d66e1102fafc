package mongodb

const (
	AccountsCollection    = "accounts"              // For accounts
	AttributesCollection  = "account_attributes"    // For per-account generic attributes
	DefinitionsCollection = "attribute_definitions" // For selectable attribute definitions
	SessionsCollection    = "account_sessions"      // For login sessions
)
