package credentialexchange

const (
	SELF_NAME = "aws-keychain-util"

	// RoleSessionDuration is the fixed lifetime requested for assumed
	// role sessions, in seconds.
	RoleSessionDuration int32 = 3600
	// MFASessionDuration is the fixed lifetime requested for MFA
	// session tokens, in seconds.
	MFASessionDuration int32 = 43200

	// RoleNoneArg is the CLI sentinel for logging out of a role.
	RoleNoneArg = "none"
)
