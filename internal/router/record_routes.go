package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tdapps/td-backend/internal/config"
	"github.com/tdapps/td-backend/internal/handler"
	"github.com/tdapps/td-backend/internal/middleware"
	"github.com/tdapps/td-backend/internal/model"
)

// RegisterRecords registers the PDU and acara endpoints plus the
// authenticated file proxy.  Every route requires a valid access token;
// the all-users listings additionally require the admin or staff role.
// The whole record surface sits behind the listing cache: GETs are served
// from it, mutations pass through and invalidate it.
func RegisterRecords(e *echo.Echo, pdu *handler.PDUHandler, acara *handler.AcaraHandler, files *handler.FileHandler, jwtSecret string, cache config.CacheConfig, rdb *redis.Client) {
	auth := middleware.JWTAuth(jwtSecret)
	cached := middleware.ListingCache(cache, rdb)

	p := e.Group("/pdu", auth, cached)
	p.POST("", pdu.Create)
	p.POST("/full", pdu.CreateFull)
	p.GET("", pdu.List)
	p.PUT("/:id", pdu.Update)
	p.DELETE("/:id", pdu.Delete)

	e.GET("/pduadmin", pdu.ListAll, auth, middleware.RequireRole(model.RoleAdmin), cached)
	e.GET("/pdustaff", pdu.ListAll, auth, middleware.RequireRole(model.RoleStaff), cached)

	a := e.Group("/acara", auth, cached)
	a.POST("", acara.Create)
	a.GET("", acara.List)
	a.GET("/:id", acara.GetByID)
	a.PUT("/:id", acara.Update)
	a.DELETE("/:id", acara.Delete)

	e.GET("/admin/acara", acara.ListAll, auth, middleware.RequireRole(model.RoleAdmin), cached)

	e.GET("/uploads/:category/:filename", files.Get, auth)
}
