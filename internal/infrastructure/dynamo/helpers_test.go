package dynamo

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrKey(t *testing.T) {
	key := strKey("item_id", "abc123")
	require.Len(t, key, 1)
	s, ok := key["item_id"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "abc123", s.Value)
}

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{"title": "Bike"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", expr)
	assert.Equal(t, "title", names["#f0"])
	s, ok := values[":v0"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "Bike", s.Value)
}

func TestBuildUpdateExpr_MultipleFields(t *testing.T) {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		"order":  2,
		"status": "sold",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(expr, "SET "))
	assert.Contains(t, expr, ", ")
	assert.Len(t, names, 2)
	assert.Len(t, values, 2)
	// reserved words must only appear behind aliases
	assert.NotContains(t, expr, "order")
	assert.NotContains(t, expr, "status")
}

func TestBuildUpdateExpr_Empty(t *testing.T) {
	_, _, _, err := buildUpdateExpr(map[string]interface{}{})
	require.Error(t, err)
}
