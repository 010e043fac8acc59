package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"clinic-booking-server/internal/models"
)

// newMockDB wires gorm over a sqlmock connection so handlers can be
// exercised without a live MySQL.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

// newAuthedRouter builds a router whose requests carry the given identity,
// standing in for the JWT middleware.
func newAuthedRouter(userID string, role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("userRole", role)
	})
	return router
}

func notificationRows(id, userID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "appointment_id", "kind", "subject", "content", "read_at"}).
		AddRow(id, userID, "appt-1", "appointment_confirmed", "Appointment confirmed", "See you then.", nil)
}

func TestMarkNotificationAsReadFindsRowByRouteParam(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewNotificationHandler(db)

	router := newAuthedRouter("user-1", models.RoleUser)
	router.PATCH("/notifications/:id/read", handler.MarkNotificationAsRead)

	mock.ExpectQuery("SELECT \\* FROM `notifications` WHERE id = \\?").
		WithArgs("notif-1", 1).
		WillReturnRows(notificationRows("notif-1", "user-1"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `notifications` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/notifications/notif-1/read", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkNotificationAsReadRejectsOtherUsersRow(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewNotificationHandler(db)

	router := newAuthedRouter("user-2", models.RoleUser)
	router.PATCH("/notifications/:id/read", handler.MarkNotificationAsRead)

	mock.ExpectQuery("SELECT \\* FROM `notifications` WHERE id = \\?").
		WithArgs("notif-1", 1).
		WillReturnRows(notificationRows("notif-1", "user-1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/notifications/notif-1/read", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
