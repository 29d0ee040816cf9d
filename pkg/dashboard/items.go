package dashboard

import (
	"context"
)

const itemFields = `
	id
	accountId
	externalId
	evaluationId
	text
	metadata
	identifiers
	attachedFiles
	isEvaluation
	createdByType
	createdAt
	updatedAt`

const getItemOp = "getItem"

func (c *gqlClient) GetItem(ctx context.Context, id string) (*Item, error) {
	query := `query GetItem($id: ID!) {
		` + getItemOp + `(id: $id) {` + itemFields + `
		}
	}`

	var item Item
	if err := c.execute(ctx, getItemOp, query, map[string]any{"id": id}, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

const createItemOp = "createItem"

func (c *gqlClient) CreateItem(ctx context.Context, input map[string]any) (*Item, error) {
	query := `mutation CreateItem($input: CreateItemInput!) {
		` + createItemOp + `(input: $input) {` + itemFields + `
		}
	}`

	var item Item
	if err := c.execute(ctx, createItemOp, query, map[string]any{"input": input}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

const updateItemOp = "updateItem"

func (c *gqlClient) UpdateItem(ctx context.Context, id string, patch map[string]any) (*Item, error) {
	query := `mutation UpdateItem($input: UpdateItemInput!) {
		` + updateItemOp + `(input: $input) {` + itemFields + `
		}
	}`

	input := map[string]any{"id": id}
	for k, v := range patch {
		input[k] = v
	}

	var item Item
	if err := c.execute(ctx, updateItemOp, query, map[string]any{"input": input}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

const createIdentifierOp = "createIdentifier"

func (c *gqlClient) CreateIdentifier(ctx context.Context, input map[string]any) (*Identifier, error) {
	query := `mutation CreateIdentifier($input: CreateIdentifierInput!) {
		` + createIdentifierOp + `(input: $input) {
			id
			accountId
			itemId
			name
			value
			url
			position
			updatedAt
		}
	}`

	var ident Identifier
	if err := c.execute(ctx, createIdentifierOp, query, map[string]any{"input": input}, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

const listIdentifiersByValueOp = "listIdentifierByAccountIdAndValue"

// ListIdentifiersByValue queries the account-scoped secondary index on
// identifier value. Within an account a value should resolve to at most one
// item; callers handle duplicates as a soft condition.
func (c *gqlClient) ListIdentifiersByValue(ctx context.Context, accountID, value string) ([]Identifier, error) {
	query := `query ListIdentifiersByValue($accountId: String!, $value: ModelStringKeyConditionInput, $limit: Int) {
		` + listIdentifiersByValueOp + `(accountId: $accountId, value: $value, limit: $limit) {
			items {
				id
				accountId
				itemId
				name
				value
				url
				position
				updatedAt
			}
			nextToken
		}
	}`

	vars := map[string]any{
		"accountId": accountID,
		"value":     map[string]any{"eq": value},
		"limit":     10,
	}

	var page struct {
		Items     []Identifier `json:"items"`
		NextToken string       `json:"nextToken"`
	}
	if err := c.execute(ctx, listIdentifiersByValueOp, query, vars, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

const listItemsByExternalIDOp = "listItemByAccountIdAndExternalId"

func (c *gqlClient) ListItemsByExternalID(ctx context.Context, accountID, externalID string) ([]Item, error) {
	query := `query ListItemsByExternalID($accountId: String!, $externalId: ModelStringKeyConditionInput, $limit: Int) {
		` + listItemsByExternalIDOp + `(accountId: $accountId, externalId: $externalId, limit: $limit) {
			items {` + itemFields + `
			}
			nextToken
		}
	}`

	vars := map[string]any{
		"accountId":  accountID,
		"externalId": map[string]any{"eq": externalID},
		"limit":      10,
	}

	var page struct {
		Items     []Item `json:"items"`
		NextToken string `json:"nextToken"`
	}
	if err := c.execute(ctx, listItemsByExternalIDOp, query, vars, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}
