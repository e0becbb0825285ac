package dto

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	App      string `json:"app" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Data     string `json:"data" binding:"required"`
	ForceAI  bool   `json:"force_ai"`
	FromData bool   `json:"from_app_data"`
}

// BillListParams represents query parameters for listing bills.
type BillListParams struct {
	Type      string `form:"type"`
	State     string `form:"state"`
	RootsOnly bool   `form:"roots_only"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// DefaultBillListParams returns default values for bill list params.
func DefaultBillListParams() BillListParams {
	return BillListParams{
		Limit:  50,
		Offset: 0,
	}
}

// SettingsUpdateRequest is the body of PUT /api/settings. Every key is
// validated and saved in turn.
type SettingsUpdateRequest map[string]string

// AssetRequest creates or renames an asset.
type AssetRequest struct {
	Name string `json:"name" binding:"required"`
}

// AssetMappingRequest creates or updates an asset mapping by name.
type AssetMappingRequest struct {
	Name    string `json:"name" binding:"required"`
	MapName string `json:"map_name"`
	Regex   bool   `json:"regex"`
}

// CategoryRequest creates a category node.
type CategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	Type     string `json:"type" binding:"required"`
	BookName string `json:"book_name"`
	ParentID int64  `json:"parent_id"`
}

// CategoryMappingRequest creates or updates a category mapping.
type CategoryMappingRequest struct {
	ID      int64  `json:"id"`
	Name    string `json:"name" binding:"required"`
	MapName string `json:"map_name"`
}
