package authz

const (
	RoleViewer = 10
	RoleStaff  = 20
	RoleAdmin  = 50
)

// CanViewRegistrations: карточка заявки.
func CanViewRegistrations(roleID int) bool {
	return roleID == RoleViewer || CanManageRegistrations(roleID)
}

// CanManageRegistrations: создание заявок, выпуск ссылок, смена статуса.
func CanManageRegistrations(roleID int) bool {
	return roleID == RoleStaff || roleID == RoleAdmin
}
