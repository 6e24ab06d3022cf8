package http

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solvra/batch-clearing/internal/api/dto"
	"github.com/solvra/batch-clearing/internal/auction"
	"github.com/solvra/batch-clearing/internal/core"
	"github.com/solvra/batch-clearing/internal/domain"
	"github.com/solvra/batch-clearing/internal/middleware"
	"github.com/solvra/batch-clearing/internal/port"
)

type HTTPServer struct {
	Eng         *core.Engine
	poolFee     decimal.Decimal // default fee for pools registered without one
	submittedID sync.Map        // for deduplication by OrderID
}

func NewHTTPServer(eng *core.Engine, poolFee decimal.Decimal) *HTTPServer {
	return &HTTPServer{Eng: eng, poolFee: poolFee}
}

func (s *HTTPServer) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *HTTPServer) Router() *gin.Engine {
	r := gin.Default()

	rl := middleware.NewRateLimiter(time.Millisecond*100, time.Minute)
	r.Use(rl.Middleware())

	r.POST("/orders", s.submitOrder)
	r.POST("/orders/cancel", s.cancelOrder)
	r.GET("/orders/:id", s.getOrder)
	r.GET("/orderbook", s.getBook)
	r.POST("/auction/clear", s.clearAuction)
	r.POST("/auction/solve", s.solveAuction)
	r.POST("/amm/pools", s.registerPool)
	r.POST("/amm/quote", s.quotePool)
	r.POST("/amm/execute", s.executePool)

	return r
}

func (s *HTTPServer) submitOrder(c *gin.Context) {
	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ValidateOrder(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// deduplication
	if req.OrderID != "" {
		if _, exists := s.submittedID.LoadOrStore(req.OrderID, struct{}{}); exists {
			c.JSON(http.StatusOK, dto.SubmitOrderResponse{OrderID: req.OrderID, Message: "duplicate order"})
			return
		}
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = uuid.NewString()
	}
	o := domain.NewOrderWithID(orderID, domain.Side(req.Side), req.AmountIn, req.LimitPrice)

	if err := s.Eng.SubmitOrder(c.Request.Context(), req.Symbol, o); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SubmitOrderResponse{OrderID: o.ID})
}

func (s *HTTPServer) cancelOrder(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Eng.CancelOrder(c.Request.Context(), req.Symbol, req.OrderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CancelOrderResponse{OrderID: req.OrderID, Cancelled: true})
}

func (s *HTTPServer) getOrder(c *gin.Context) {
	id := c.Param("id")
	o, err := s.Eng.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.GetOrderResponse{Order: convertOrder(o)})
}

func (s *HTTPServer) getBook(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}
	snap, err := s.Eng.Snapshot(c.Request.Context(), symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.GetBookResponse{
		Symbol:    snap.Symbol,
		Version:   snap.Version,
		Buys:      convertOrders(snap.Buys),
		Sells:     convertOrders(snap.Sells),
		Timestamp: snap.Timestamp,
	})
}

func (s *HTTPServer) clearAuction(c *gin.Context) {
	var req dto.ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	solution, err := s.Eng.Clear(c.Request.Context(), req.Symbol, req.Price, req.Commit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertSolution(solution))
}

func (s *HTTPServer) solveAuction(c *gin.Context) {
	var req dto.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	solution, err := s.Eng.Solve(c.Request.Context(), req.Symbol, core.SolveParams{
		Strategy:    core.Strategy(req.Strategy),
		TargetPrice: req.TargetPrice,
		BuyBudget:   req.BuyBudget,
		SellBudget:  req.SellBudget,
		Resolution:  req.Resolution,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertSolution(solution))
}

func (s *HTTPServer) registerPool(c *gin.Context) {
	var req dto.RegisterPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// nil means the field was absent; an explicit zero registers a fee-free pool.
	fee := s.poolFee
	if req.Fee != nil {
		fee = *req.Fee
	}
	if err := s.Eng.RegisterPool(req.Symbol, req.R0, req.R1, fee); err != nil {
		respondError(c, err)
		return
	}
	price, err := s.Eng.PoolPrice(req.Symbol)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RegisterPoolResponse{Symbol: req.Symbol, Price: price})
}

func (s *HTTPServer) quotePool(c *gin.Context) {
	s.poolTrade(c, true)
}

func (s *HTTPServer) executePool(c *gin.Context) {
	s.poolTrade(c, false)
}

func (s *HTTPServer) poolTrade(c *gin.Context, simulate bool) {
	var req dto.PoolTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dir := port.Direction(req.Direction)
	var amount decimal.Decimal
	var err error
	if simulate {
		amount, err = s.Eng.QuotePool(req.Symbol, req.Delta, dir)
	} else {
		amount, err = s.Eng.ExecutePool(req.Symbol, req.Delta, dir)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PoolTradeResponse{AmountOut: amount})
}

func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, core.ErrSymbolNotFound),
		errors.Is(err, core.ErrOrderNotFound),
		errors.Is(err, core.ErrPoolNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func convertOrder(o *domain.Order) dto.Order {
	return dto.Order{
		ID:             o.ID,
		Side:           dto.Side(o.Side),
		AmountIn:       o.AmountIn,
		LimitPrice:     o.LimitPrice,
		Status:         string(o.Status),
		FilledPrice:    o.FilledPrice(),
		CanonicalPrice: o.CanonicalPrice(),
		AmountOut:      o.AmountOut,
		AmountFilled:   o.AmountFilled,
		CreatedAt:      o.CreatedAt,
	}
}

func convertOrders(orders []*domain.Order) []dto.Order {
	res := make([]dto.Order, len(orders))
	for i, o := range orders {
		res[i] = convertOrder(o)
	}
	return res
}

func convertSolution(s *domain.Solution) dto.SolutionResponse {
	return dto.SolutionResponse{
		ClearingPrice: s.ClearingPrice,
		BuyVolume:     s.BuyVolume,
		SellVolume:    s.SellVolume,
		MatchVolume:   s.MatchVolume(),
		Orders:        convertOrders(s.Orders),
	}
}

func ValidateOrder(req *dto.SubmitOrderRequest) error {
	switch req.Side {
	case dto.Buy, dto.Sell:
	default:
		return fmt.Errorf("invalid side: %s", req.Side)
	}
	if req.OrderID == auction.SyntheticOrderID {
		return fmt.Errorf("order id %q is reserved", req.OrderID)
	}
	if !req.AmountIn.IsPositive() {
		return fmt.Errorf("amount_in must be > 0")
	}
	if !req.LimitPrice.IsPositive() {
		return fmt.Errorf("limit_price must be > 0")
	}
	return nil
}
