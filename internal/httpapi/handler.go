package httpapi

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"edchain/internal/auth"
	"edchain/internal/config"
	"edchain/internal/directory"
	"edchain/internal/ledger"
	"edchain/internal/pinning"
	"edchain/internal/queue"
	"edchain/internal/reconcile"
)

// DirectoryStore is the directory surface the API needs.
type DirectoryStore interface {
	Register(ctx context.Context, name, registrationNumber, walletAddress string) (directory.StudentRecord, error)
	ListAll(ctx context.Context) ([]directory.StudentRecord, error)
}

// Gate checks teacher and student logins.
type Gate interface {
	AuthenticateTeacher(username, password string) error
	AuthenticateStudent(ctx context.Context, registrationNumber string) (directory.StudentRecord, error)
}

// Reconciler produces the enriched ledger views.
type Reconciler interface {
	Submissions(ctx context.Context) ([]reconcile.Submission, error)
	Assignments(ctx context.Context) ([]ledger.Assignment, error)
}

// Pinner pins uploaded files and returns their content hash.
type Pinner interface {
	PinFile(ctx context.Context, data []byte, filename string) (*pinning.PinResult, error)
}

// Sweeper runs the directory drift sweep on demand.
type Sweeper interface {
	Run(ctx context.Context) ([]string, error)
}

// DriftReader reads the drift set left by the last sweep.
type DriftReader interface {
	Drift(ctx context.Context) ([]string, error)
}

// Handler owns the HTTP routes.
type Handler struct {
	cfg     config.App
	gate    Gate
	dir     DirectoryStore
	rec     Reconciler
	pinner  Pinner // nil when Pinata is not configured
	sweeper Sweeper
	drift   DriftReader
	q       queue.Queue
}

// New creates a handler.
func New(cfg config.App, gate Gate, dir DirectoryStore, rec Reconciler, pinner Pinner, sweeper Sweeper, drift DriftReader, q queue.Queue) *Handler {
	return &Handler{cfg: cfg, gate: gate, dir: dir, rec: rec, pinner: pinner, sweeper: sweeper, drift: drift, q: q}
}

// Register mounts all routes under /api.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/teacher/login", h.TeacherLogin)
	api.POST("/student/login", h.StudentLogin)
	api.GET("/students", h.ListStudents)
	api.POST("/register", h.RegisterStudent)
	api.POST("/upload", h.Upload)
	api.GET("/submissions", h.Submissions)
	api.GET("/assignments", h.Assignments)

	teacher := api.Group("/reconcile", auth.RequireRole(h.cfg.JWTSigningKey, h.cfg.JWTIssuer, auth.RoleTeacher))
	teacher.GET("/drift", h.DriftWallets)
	teacher.POST("/sweep", h.Sweep)
}

// ---------- Logins ----------

type teacherLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TeacherLogin checks the configured credential pair. Wallet linkage happens
// client-side after this gate passes.
func (h *Handler) TeacherLogin(c *gin.Context) {
	var req teacherLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	if err := h.gate.AuthenticateTeacher(req.Username, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	tokens, err := auth.Issue(req.Username, auth.RoleTeacher, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Teacher logged in",
		"access_token": tokens.AccessToken,
		"expires_at":   tokens.AccessExp.Unix(),
	})
}

type studentLoginRequest struct {
	RegistrationNumber string `json:"registrationNumber" binding:"required"`
}

// StudentLogin resolves a registration number. The frontend still has to
// check the connected wallet equals the returned walletAddress.
func (h *Handler) StudentLogin(c *gin.Context) {
	var req studentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid registration number"})
		return
	}
	student, err := h.gate.AuthenticateStudent(c.Request.Context(), req.RegistrationNumber)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid registration number"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in"})
		return
	}

	tokens, err := auth.Issue(student.RegistrationNumber, auth.RoleStudent, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Student logged in",
		"student": gin.H{
			"name":               student.Name,
			"registrationNumber": student.RegistrationNumber,
			"walletAddress":      student.WalletAddress,
		},
		"access_token": tokens.AccessToken,
		"expires_at":   tokens.AccessExp.Unix(),
	})
}

// ---------- Directory ----------

// ListStudents returns every registered student in insertion order.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.dir.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching students"})
		return
	}
	c.JSON(http.StatusOK, students)
}

type registerRequest struct {
	Name               string `json:"name" binding:"required"`
	RegistrationNumber string `json:"registrationNumber" binding:"required"`
	WalletAddress      string `json:"walletAddress" binding:"required"`
}

// RegisterStudent mirrors a ledger-authorized student into the directory.
// The ledger write already happened client-side with the teacher's signing
// key; the mirror is not transactional with it, so a mirror-verify job is
// enqueued for the worker.
func (h *Handler) RegisterStudent(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error registering student", "error": err.Error()})
		return
	}

	student, err := h.dir.Register(c.Request.Context(), req.Name, req.RegistrationNumber, req.WalletAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error registering student", "error": err.Error()})
		return
	}

	if h.q != nil {
		if err := h.q.Publish(c.Request.Context(), queue.Message{Type: queue.TypeMirror, Body: []byte(student.WalletAddress)}); err != nil {
			log.Printf("mirror job publish failed: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Student registered", "student": student})
}

// ---------- Upload ----------

// Upload pins a multipart file and returns its content hash. On failure the
// file is not submitted and the caller must not write the ledger.
func (h *Handler) Upload(c *gin.Context) {
	if h.pinner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Pinning not configured"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error uploading file", "error": err.Error()})
		return
	}

	result, err := h.pinner.PinFile(c.Request.Context(), data, header.Filename)
	if err != nil {
		log.Printf("pin upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error uploading file", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fileHash": result.IpfsHash})
}

// ---------- Ledger views ----------

// Submissions returns the reconciled submission list in ledger append order.
func (h *Handler) Submissions(c *gin.Context) {
	subs, err := h.rec.Submissions(c.Request.Context())
	if err != nil {
		log.Printf("reconcile submissions failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching submissions"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

// Assignments returns every ledger assignment.
func (h *Handler) Assignments(c *gin.Context) {
	assignments, err := h.rec.Assignments(c.Request.Context())
	if err != nil {
		log.Printf("reconcile assignments failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching assignments"})
		return
	}
	c.JSON(http.StatusOK, assignments)
}

// ---------- Drift ----------

// DriftWallets returns the wallets flagged by the last sweep.
func (h *Handler) DriftWallets(c *gin.Context) {
	wallets, err := h.drift.Drift(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching drift"})
		return
	}
	if wallets == nil {
		wallets = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// Sweep runs the drift sweep synchronously.
func (h *Handler) Sweep(c *gin.Context) {
	wallets, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		log.Printf("drift sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error running sweep"})
		return
	}
	if wallets == nil {
		wallets = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}
