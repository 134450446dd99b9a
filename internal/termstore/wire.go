// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package termstore

import "github.com/goccy/go-json"

// AJAX actions, sent in the "action" form field.
const (
	ActionGetTerms            = "BCM_get_terms"
	ActionGetTermData         = "BCM_get_term_data"
	ActionSaveTerm            = "BCM_save_term"
	ActionDeleteTerm          = "BCM_delete_term"
	ActionUpdateTermHierarchy = "BCM_update_term_hierarchy"
	ActionGetParentOptions    = "BCM_get_parent_options"
)

// Form field names shared by the client and the AJAX handler.
const (
	FieldAction      = "action"
	FieldTaxonomy    = "category"
	FieldTermID      = "term_id"
	FieldParentID    = "parent_id"
	FieldName        = "name"
	FieldSlug        = "slug"
	FieldDescription = "description"
	FieldParent      = "parent"
)

// Paths of the AJAX endpoint, relative to the site base URL.
const (
	AjaxPath  = "/admin/ajax"
	NoncePath = "/admin/ajax/nonce"
)

// Envelope is the response body of every AJAX action. On failure Data
// holds a Message.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Nonce is the reply of the nonce endpoint.
type Nonce struct {
	Nonce string `json:"nonce"`
}
