package guard

import "github.com/internhub/portal/internal/user"

// Route is one portal view. A route without roles is public.
type Route struct {
	Path  string      `json:"path"`
	View  string      `json:"view"`
	Roles []user.Role `json:"roles,omitempty"`
}

// Public reports whether the route is served without a session check
func (r Route) Public() bool {
	return len(r.Roles) == 0
}

var (
	admin   = user.RoleAdmin
	student = user.RoleStudent
	company = user.RoleCompany
	staff   = user.RoleStaff
)

// Routes returns the portal route table
func Routes() []Route {
	return []Route{
		// student facing
		{Path: "/", View: "home"},
		{Path: "/student/companies", View: "company-list"},
		{Path: "/student/company/:companyId", View: "student-company-detail"},
		{Path: "/student/internship/:internshipId", View: "internship-detail"},
		{Path: "/student/internships", View: "internship-list"},
		{Path: "/student/profile", View: "profile", Roles: []user.Role{student}},
		{Path: "/proposals", View: "my-proposal", Roles: []user.Role{student}},
		{Path: "/proposals/create", View: "create-proposal", Roles: []user.Role{student}},
		{Path: "/applyList", View: "my-apply", Roles: []user.Role{student}},

		// management
		{Path: "/manager/welcome", View: "welcome-manager", Roles: []user.Role{admin, company, staff}},
		{Path: "/manager/account/list", View: "account-list", Roles: []user.Role{admin}},
		{Path: "/manager/account/detail/:accountID", View: "account-detail", Roles: []user.Role{admin}},
		{Path: "/manager/account/create", View: "create-account", Roles: []user.Role{admin}},
		{Path: "/manager/internship/list", View: "internship-list-for-company", Roles: []user.Role{company, admin}},
		{Path: "/manager/internship/create", View: "internship-create", Roles: []user.Role{company, admin}},
		{Path: "/manager/internship/details/:internshipId", View: "internship-details", Roles: []user.Role{company, admin, student, staff}},
		{Path: "/manager/internship/update/:internshipId", View: "internship-update", Roles: []user.Role{company, admin}},
		{Path: "/manager/company/company-profile", View: "company-profile", Roles: []user.Role{company}},
		{Path: "/manager/application/list", View: "application-list", Roles: []user.Role{company}},
		{Path: "/manager/approved-internships", View: "approved-internship-list", Roles: []user.Role{company}},
		{Path: "/manager/companies", View: "company-list-for-manager", Roles: []user.Role{staff}},
		{Path: "/company-detail/:companyId", View: "company-detail", Roles: []user.Role{admin, company, staff, student}},
		{Path: "/manager/proposal/list", View: "proposal-list", Roles: []user.Role{staff}},
		{Path: "/manager/student/list", View: "student-list", Roles: []user.Role{staff}},
		{Path: "/manager/student/edit/:id", View: "student-edit", Roles: []user.Role{staff}},
		{Path: "/manager/student/add", View: "student-add", Roles: []user.Role{staff}},
		{Path: "/manager/company-posts", View: "internship-list-for-staff", Roles: []user.Role{staff}},
		{Path: "/manager/application/approved", View: "approved-student-list", Roles: []user.Role{staff}},
	}
}
