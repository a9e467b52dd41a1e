package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"recruitment-backend/internal/delivery/http/middleware"
	"recruitment-backend/internal/delivery/http/response"
	"recruitment-backend/internal/domain"
	"recruitment-backend/pkg/apperror"
	"recruitment-backend/pkg/security"
	"recruitment-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ApplicationHandler struct {
	applicationUC domain.ApplicationUsecase
	authUC        domain.AuthUsecase
	secLog        *security.SecurityLogger
}

// NewApplicationHandler registers application routes on an authenticated group
func NewApplicationHandler(protected *gin.RouterGroup, applicationUC domain.ApplicationUsecase, authUC domain.AuthUsecase, secLog *security.SecurityLogger) {
	handler := &ApplicationHandler{
		applicationUC: applicationUC,
		authUC:        authUC,
		secLog:        secLog,
	}

	applications := protected.Group("/applications")
	{
		// Applicant routes
		applications.POST("", middleware.RequireRoles(domain.RoleApplicant), handler.Submit)
		applications.GET("/me", middleware.RequireRoles(domain.RoleApplicant), handler.GetMine)
		applications.PUT("/personal-info", handler.UpdatePersonalInfo)

		// Recruiter routes
		recruiter := middleware.RequireRoles(domain.RoleRecruiter)
		applications.GET("/all", recruiter, handler.ListUnhandled)
		applications.GET("/export", recruiter, handler.Export)
		applications.PUT("/:person_id/status", recruiter, handler.UpdateStatus)

		// Recruiter or the applicant themselves
		applications.GET("/:person_id", handler.GetByPersonID)
	}
}

// yearsValue accepts years of experience as a JSON number or a numeric string.
type yearsValue float64

func (y *yearsValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("competenceTime: %q is not a number", s)
		}
		*y = yearsValue(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*y = yearsValue(f)
	return nil
}

type CompetenceRequest struct {
	CompetenceType string     `json:"competenceType" example:"lotteries"`
	CompetenceTime yearsValue `json:"competenceTime" swaggertype:"number" example:"3.5"`
}

// SubmitApplicationRequest is the application form as sent by the applicant
type SubmitApplicationRequest struct {
	Competences  []CompetenceRequest        `json:"competences"`
	Availability []domain.AvailabilityInput `json:"availability"`
}

func (r SubmitApplicationRequest) toInput() domain.SubmissionInput {
	in := domain.SubmissionInput{
		Competences:  make([]domain.CompetenceInput, 0, len(r.Competences)),
		Availability: r.Availability,
	}
	for _, c := range r.Competences {
		in.Competences = append(in.Competences, domain.CompetenceInput{
			CompetenceType:    c.CompetenceType,
			YearsOfExperience: float64(c.CompetenceTime),
		})
	}
	return in
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" example:"ACCEPTED"`
}

// Submit godoc
// @Summary      Submit application
// @Description  Replace the caller's competences and availability and reset the application to UNHANDLED (Applicant only)
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        body  body      SubmitApplicationRequest  true  "Application form"
// @Success      200   {object}  response.Response{data=domain.SubmitResult}
// @Failure      400   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Router       /applications [post]
// @Security     BearerAuth
func (h *ApplicationHandler) Submit(c *gin.Context) {
	// 1. Get applicant from context
	personID, _ := middleware.CurrentPersonID(c)

	// 2. Bind request
	var req SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	// 3. Submit
	result, err := h.applicationUC.Submit(c.Request.Context(), personID, req.toInput())
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Application submitted", result)
}

// GetMine godoc
// @Summary      Get my application
// @Tags         applications
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Application}
// @Failure      404  {object}  response.Response
// @Router       /applications/me [get]
// @Security     BearerAuth
func (h *ApplicationHandler) GetMine(c *gin.Context) {
	personID, _ := middleware.CurrentPersonID(c)
	h.fetch(c, personID)
}

// GetByPersonID godoc
// @Summary      Get application
// @Description  Recruiters may read any application; applicants only their own
// @Tags         applications
// @Produce      json
// @Param        person_id  path      int  true  "Person ID"
// @Success      200        {object}  response.Response{data=domain.Application}
// @Failure      403        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /applications/{person_id} [get]
// @Security     BearerAuth
func (h *ApplicationHandler) GetByPersonID(c *gin.Context) {
	personID, err := personIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	role, _ := middleware.CurrentRole(c)
	callerID, _ := middleware.CurrentPersonID(c)
	if role != domain.RoleRecruiter && callerID != personID {
		h.secLog.Log(c.Request.Context(), security.SecurityEvent{
			Event:        security.EventForbiddenAccess,
			SubjectType:  "person_id",
			SubjectValue: strconv.FormatInt(callerID, 10),
			IP:           c.ClientIP(),
			RequestID:    c.GetString(middleware.RequestIDKey),
			Details:      map[string]interface{}{"path": c.FullPath(), "target_person_id": personID},
		})
		c.Error(apperror.Forbidden("You can only view your own application"))
		return
	}

	h.fetch(c, personID)
}

func (h *ApplicationHandler) fetch(c *gin.Context, personID int64) {
	app, err := h.applicationUC.Fetch(c.Request.Context(), personID)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Application retrieved", app)
}

// ListUnhandled godoc
// @Summary      List unhandled applications
// @Description  Recruiter work queue ordered by person ID (Recruiter only)
// @Tags         applications
// @Produce      json
// @Success      200  {object}  response.Response{data=[]domain.ApplicationOverview}
// @Failure      403  {object}  response.Response
// @Router       /applications/all [get]
// @Security     BearerAuth
func (h *ApplicationHandler) ListUnhandled(c *gin.Context) {
	list, err := h.applicationUC.ListUnhandled(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Applications retrieved", list)
}

// UpdateStatus godoc
// @Summary      Decide an application
// @Description  Move an UNHANDLED application to ACCEPTED or REJECTED. The first recruiter wins; later attempts get 409 with the current status.
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        person_id  path      int                  true  "Person ID"
// @Param        body       body      UpdateStatusRequest  true  "Target status"
// @Success      200        {object}  response.Response
// @Failure      400        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Failure      409        {object}  response.ConflictResponse
// @Router       /applications/{person_id}/status [put]
// @Security     BearerAuth
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	// 1. Parse person ID
	personID, err := personIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	// 2. Bind request
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	// 3. Transition
	status, err := h.applicationUC.TransitionStatus(c.Request.Context(), personID, req.Status)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Application status updated", gin.H{"status": status})
}

// Export godoc
// @Summary      Export unhandled applications
// @Tags         applications
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      text/csv
// @Param        format  query     string  false  "xlsx (default) or csv"
// @Success      200     {file}    binary
// @Failure      400     {object}  response.Response
// @Router       /applications/export [get]
// @Security     BearerAuth
func (h *ApplicationHandler) Export(c *gin.Context) {
	file, err := h.applicationUC.ExportUnhandled(c.Request.Context(), c.Query("format"))
	if err != nil {
		c.Error(err)
		return
	}

	personID, _ := middleware.CurrentPersonID(c)
	h.secLog.LogPersonEvent(c.Request.Context(), security.EventDataExport, personID, map[string]interface{}{
		"filename": file.Filename,
		"bytes":    len(file.Content),
	})

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// UpdatePersonalInfo godoc
// @Summary      Update personal information
// @Tags         applications
// @Accept       json
// @Produce      json
// @Param        body  body      domain.PersonalInfoInput  true  "Personal information"
// @Success      200   {object}  response.Response
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /applications/personal-info [put]
// @Security     BearerAuth
func (h *ApplicationHandler) UpdatePersonalInfo(c *gin.Context) {
	personID, _ := middleware.CurrentPersonID(c)

	var req domain.PersonalInfoInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	if err := h.authUC.UpdatePersonalInfo(c.Request.Context(), personID, req); err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Profile updated", nil)
}

func personIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("person_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.BadRequest("Invalid person ID")
	}
	return id, nil
}

// bindError turns a binding failure into a 400, with per-field messages when
// the body decoded but failed validation.
func bindError(err error) *apperror.AppError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return apperror.Validation("Invalid request", err, validation.FormatValidationErrors(err))
	}
	return apperror.New(http.StatusBadRequest, "Invalid request body", err)
}
