package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	sensitivitydomain "github.com/smallbiznis/pqio/internal/sensitivity/domain"
	settingdomain "github.com/smallbiznis/pqio/internal/setting/domain"
)

func (s *Server) GetGlobalSensitivity(c *gin.Context) {
	g, err := s.sensitivity.Global(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": g})
}

// SetGlobalSensitivity overwrites the code and note of every row.
func (s *Server) SetGlobalSensitivity(c *gin.Context) {
	var req sensitivitydomain.Global
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	updated, err := s.sensitivity.SetGlobal(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": updated}})
}

func (s *Server) ListCustomFieldDomains(c *gin.Context) {
	domains, err := s.customFields.Domains(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": domains})
}

func (s *Server) CreateCustomFieldDomain(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := s.customFields.AddDomain(c.Request.Context(), name); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"name": name}})
}

func (s *Server) GetContact(c *gin.Context) {
	contact, err := s.settings.Contact(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contact})
}

// UpdateContact stores the fields present in the body.
func (s *Server) UpdateContact(c *gin.Context) {
	var req struct {
		Utility *string `json:"utility"`
		Email   *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ctx := c.Request.Context()
	for name, value := range map[string]*string{
		settingdomain.ContactUtility: req.Utility,
		settingdomain.ContactEmail:   req.Email,
	} {
		if value == nil {
			continue
		}
		if err := s.settings.Put(ctx, name, strings.TrimSpace(*value)); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	contact, err := s.settings.Contact(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contact})
}
