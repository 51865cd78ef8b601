//go:build windows

package privilege

import "golang.org/x/sys/windows"

// hasElevatedRights checks membership of the builtin Administrators group on
// the process token.
func hasElevatedRights() bool {
	var adminSid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&adminSid)
	if err != nil {
		return false
	}
	defer windows.FreeSid(adminSid)

	token := windows.Token(0)
	isMember, err := token.IsMember(adminSid)
	if err != nil {
		return false
	}
	return isMember
}
