package dynamo

// DynamoDB attribute names shared across repos.
const (
	fieldEnable    = "enable"
	fieldStatus    = "status"
	fieldOrder     = "order"
	fieldUpdatedAt = "updated_at"
)
