package elasticsearch

// DefaultIndexName is the index holding product documents.
const DefaultIndexName = "products"

// indexMapping is the fixed schema of the products index. It is applied only
// when the index is created.
const indexMapping = `{
  "mappings": {
    "properties": {
      "name":          { "type": "text" },
      "description":   { "type": "text" },
      "price":         { "type": "float" },
      "category_name": { "type": "keyword" },
      "category_id":   { "type": "integer" }
    }
  }
}`
