package domain

// Role 由外部认证服务签发在令牌中的角色
type Role string

const (
	RoleStaff      Role = "店员"
	RoleSupervisor Role = "主管"
	RoleManager    Role = "店长"
)
