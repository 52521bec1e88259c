package testutil

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mdb := NewMockDB(t)
	defer mdb.Close()

	mdb.Mock.ExpectQuery(`SELECT count\(\*\) FROM "receipts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var count int64
	err := mdb.DB.Table("receipts").Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	mdb.ExpectationsWereMet(t)
}

func TestPerformRequest(t *testing.T) {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{
			"value":  body["value"],
			"header": c.GetHeader("X-Custom"),
		})
	})

	w := PerformRequest(engine, http.MethodPost, "/echo", `{"value":"hello"}`, map[string]string{
		"X-Custom": "abc",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":"hello"`)
	assert.Contains(t, w.Body.String(), `"header":"abc"`)
}
