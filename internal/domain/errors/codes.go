package errors

// ExitCode maps a code to the process exit status used by the CLI, so that
// scripts can tell authorization, lookup and scheduling failures apart.
func (c Code) ExitCode() int {
	switch c {
	case "":
		return 0
	case CodeValidation, CodeInvalidRole, CodeInvalidOperation:
		return 2
	case CodeNotAuthorized:
		return 3
	case CodeNotFound:
		return 4
	case CodeScheduleConflict:
		return 5
	default:
		return 1
	}
}
