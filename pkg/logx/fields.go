package logx

const (
	FieldAppName     = "app-name"
	FieldAppVersion  = "app-version"
	FieldBuyerID     = "buyer-id"
	FieldBuyerName   = "buyer-name"
	FieldChatID      = "chat-id"
	FieldMeal        = "meal"
	FieldMess        = "mess"
	FieldOffer       = "offer"
	FieldPrice       = "price"
	FieldQueueLength = "queue-length"
	FieldSaleState   = "sale-state"
	FieldTraceID     = "trace-id"
)
