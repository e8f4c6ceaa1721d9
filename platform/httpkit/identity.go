// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// RoleService is carried by cron jobs, database webhooks and other backend callers.
	RoleService = "service_role"
	// RoleTechnician is carried by the field app reporting live location.
	RoleTechnician = "technician"
	// RoleDispatcher is carried by back-office users watching the live map.
	RoleDispatcher = "dispatcher"
)

// Identity represents the authenticated caller.
type Identity interface {
	// Subject returns the token subject (technician id for field devices).
	Subject() string
	// Role returns the caller's role claim.
	Role() string
	// IsService reports whether the caller uses the service-role key.
	IsService() bool
}

type identity struct {
	subject string
	role    string
}

func (i *identity) Subject() string { return i.subject }
func (i *identity) Role() string    { return i.role }
func (i *identity) IsService() bool { return i.role == RoleService }

// GetIdentity extracts the Identity from a Gin context.
// Returns nil when AuthRequired has not run.
func GetIdentity(c *gin.Context) Identity {
	role, ok := c.Get(ContextRoleKey)
	if !ok {
		return nil
	}
	roleText, _ := role.(string)
	subject, _ := c.Get(ContextSubjectKey)
	subjectText, _ := subject.(string)
	return &identity{subject: subjectText, role: roleText}
}

// MustGetIdentity extracts the Identity or aborts with 401.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if id == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}
