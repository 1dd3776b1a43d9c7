package common

// File permission constants for consistent security across the application
const (
	// FilePermissionSecure is used for sensitive files (config, tokens, the store)
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for non-sensitive files (exported reports)
	FilePermissionNormal = 0644

	// DirPermissionSecure is used for directories containing sensitive files
	DirPermissionSecure = 0700

	// DirPermissionNormal is used for normal directories (repository mirrors, export output)
	DirPermissionNormal = 0755
)
