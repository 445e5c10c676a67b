package present

import (
	"strconv"
	"strings"
)

// Button action tokens. Parameterised tokens carry a numeric suffix: browse_2, view_17.
const (
	ActBrowse        = "browse"
	ActUpload        = "upload"
	ActSearch        = "search"
	ActSearchName    = "search_name"
	ActSearchVIN     = "search_vin"
	ActSearchOEM     = "search_oem"
	ActSearchPrice   = "search_price"
	ActBackMenu      = "back_menu"
	ActConfirmUpload = "confirm_upload"
	ActCancelUpload  = "cancel_upload"
	ActView          = "view"
	ActContact       = "contact"
	ActAdminList     = "admin_list"
	ActAdminDelete   = "admin_delete"
)

// With appends a numeric argument to an action token.
func With(action string, n int64) string {
	return action + "_" + strconv.FormatInt(n, 10)
}

// ParseAction splits "view_17" into ("view", 17, true). Tokens without a numeric
// suffix come back whole with hasArg false.
func ParseAction(s string) (name string, arg int64, hasArg bool) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return s, 0, false
	}
	n, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || n < 0 {
		return s, 0, false
	}
	return s[:i], n, true
}
