package webhooks_module

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faizanprofitpilot/zapsocial/pkg/sdk"
)

// DataDeletion handles provider data deletion callbacks. The provider's
// webhook contract requires a confirmation URL in the response whenever the
// request itself was authentic, even if the deletion failed internally.
func DataDeletion(c *gin.Context) {
	provider := c.Param("provider")
	signedRequest := c.PostForm("signed_request")
	if signedRequest == "" {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Missing signed_request", nil).AsGinResponse())
		return
	}

	resp, err := webhookService.HandleDataDeletion(provider, signedRequest)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid signed request", err.Error()).AsGinResponse())
		return
	}

	c.JSON(http.StatusOK, resp)
}
