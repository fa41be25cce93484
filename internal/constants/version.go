package constants

// AgentVersion is reported in the User-Agent of outbound requests.
const AgentVersion = "1.0.0"

// SupportedConfigVersions is the semver constraint a config_version must satisfy.
const SupportedConfigVersions = "^1.0.0"
