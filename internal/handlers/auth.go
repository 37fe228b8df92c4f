package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"smartwaste-backend/internal/database"
	"smartwaste-backend/internal/middleware"
	"smartwaste-backend/internal/models"
	"smartwaste-backend/internal/scancodes"
	"smartwaste-backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = 15 * time.Minute

// AuthConfig is the token signing setup shared by the auth handlers
type AuthConfig struct {
	Secret string
	TTL    time.Duration
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string              `json:"message"`
	Token   string              `json:"token"`
	User    models.UserResponse `json:"user"`
}

func Register(db *sqlx.DB, auth AuthConfig, welcome WelcomeSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		req.FirstName = strings.TrimSpace(req.FirstName)
		req.LastName = strings.TrimSpace(req.LastName)
		if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
			utils.RespondError(w, http.StatusBadRequest, "All fields are required")
			return
		}
		if !validEmail(req.Email) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid email address")
			return
		}

		log.Printf("📝 Registration attempt for: %s", req.Email)

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("❌ Failed to hash password: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		now := time.Now()
		user := models.User{
			ID:        uuid.New().String(),
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Password:  string(hash),
			ScanToken: scancodes.NewUserToken(now),
			CreatedAt: now.Unix(),
			UpdatedAt: now.Unix(),
		}

		if err := database.CreateUser(db, &user); err != nil {
			if errors.Is(err, database.ErrDuplicateEmail) {
				log.Printf("❌ Email already registered: %s", req.Email)
				utils.RespondError(w, http.StatusBadRequest, "User already exists with this email")
				return
			}
			log.Printf("❌ Failed to create user: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		token, err := middleware.IssueToken(auth.Secret, user.ID, user.Email, auth.TTL)
		if err != nil {
			log.Printf("❌ Failed to create token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		if welcome != nil {
			go func(u models.User) {
				if err := welcome.SendWelcome(context.Background(), u); err != nil {
					log.Printf("⚠️  Welcome email to %s failed: %v", u.Email, err)
				}
			}(user)
		}

		log.Printf("✅ User registered: %s (%s)", user.Email, user.ID)

		utils.RespondJSON(w, http.StatusCreated, AuthResponse{
			Message: "User registered successfully",
			Token:   token,
			User:    user.ToUserResponse(),
		})
	}
}

func Login(db *sqlx.DB, auth AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		log.Printf("🔐 Login attempt for: %s", req.Email)

		user, err := database.GetUserByEmail(db, req.Email)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				log.Printf("❌ User not found: %s", req.Email)
				utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			log.Printf("❌ Login lookup failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := middleware.IssueToken(auth.Secret, user.ID, user.Email, auth.TTL)
		if err != nil {
			log.Printf("❌ Failed to create token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Login failed")
			return
		}

		log.Printf("✅ Login successful: %s", user.Email)

		utils.RespondJSON(w, http.StatusOK, AuthResponse{
			Message: "Login successful",
			Token:   token,
			User:    user.ToUserResponse(),
		})
	}
}

// GetProfile returns the caller's own account
func GetProfile(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := database.GetUserByID(db, claims.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondError(w, http.StatusNotFound, "User not found")
				return
			}
			log.Printf("❌ Failed to fetch profile for %s: %v", claims.UserID, err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch profile")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"user": user.ToUserResponse(),
		})
	}
}

// ForgotPassword stores the hash of a fresh reset token and hands the token
// back. Unknown emails get the same generic answer.
func ForgotPassword(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		email := strings.TrimSpace(strings.ToLower(req.Email))
		if email == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email is required")
			return
		}

		user, err := database.GetUserByEmail(db, email)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
					"message": "If the email exists, a reset link has been sent.",
				})
				return
			}
			log.Printf("❌ Forgot password lookup failed: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to initiate password reset")
			return
		}

		token := newResetToken()
		expires := time.Now().Add(resetTokenTTL).Unix()
		if err := database.SetResetToken(db, user.ID, hashResetToken(token), expires); err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to initiate password reset")
			return
		}

		log.Printf("🔑 Password reset token issued for: %s", user.Email)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message":    "Reset token generated",
			"resetToken": token,
		})
	}
}

func ResetPassword(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token       string `json:"token"`
			NewPassword string `json:"newPassword"`
		}
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Token == "" || req.NewPassword == "" {
			utils.RespondError(w, http.StatusBadRequest, "Token and newPassword are required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("❌ Failed to hash password: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to reset password")
			return
		}

		err = database.ResetPassword(db, hashResetToken(req.Token), string(hash), time.Now().Unix())
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondError(w, http.StatusBadRequest, "Invalid or expired token")
				return
			}
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to reset password")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Password has been reset",
		})
	}
}

// newResetToken returns 64 hex characters drawn from two random UUIDs
func newResetToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// validEmail accepts a bare address only, so the stored value can be used
// as an SMTP recipient as is
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
