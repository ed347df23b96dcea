package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"rubric:view",
		"feedback:create",
		"feedback:rate",
		"review:view-own",
		"review:export-own",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
