package handler

type ContextKey string

var (
	RoleCtxKey       ContextKey = "role"
	SubCtxKey        ContextKey = "sub"
	ActorCtxKey      ContextKey = "actor"
	DateCtxKey       ContextKey = "date"
	MonthCtxKey      ContextKey = "month"
	EmployeeIDCtxKey ContextKey = "employeeID"
)
