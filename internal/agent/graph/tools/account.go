package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/callcenter/internal/core/error"
)

const (
	ToolPackageInfo    = "get_user_package_info"
	ToolBillInfo       = "get_user_bill_info"
	ToolSupportTickets = "get_user_support_tickets"
	ToolAllPackages    = "get_all_packages"
	ToolCreateTicket   = "create_support_ticket"
	ToolChangePackage  = "change_user_package"
	ToolUpdateUserInfo = "update_user_info"
)

const (
	defaultIssueType = "teknik"
	defaultPriority  = "orta"
	ticketPrefix     = "DLK"
)

// AccountAPI is the account-data backend as seen by the capabilities.
type AccountAPI interface {
	FindUser(ctx context.Context, identifier string) (*model.User, error)
	UserResource(ctx context.Context, userID int, resource string) (json.RawMessage, error)
	Packages(ctx context.Context) ([]model.Package, error)
	CreateTicket(ctx context.Context, req model.TicketRequest) (json.RawMessage, error)
	UpdateUser(ctx context.Context, userID int, fields map[string]any) (json.RawMessage, error)
}

type IdentifierInput struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type AllPackagesInput struct{}

type CreateTicketInput struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	IssueType   string `json:"issue_type,omitempty" validate:"omitempty,oneof=baglanti faturalama hesap teknik paket"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=dusuk orta yuksek"`
}

type ChangePackageInput struct {
	PhoneNumber  string `json:"phone_number" validate:"required"`
	NewPackageID string `json:"new_package_id" validate:"required"`
}

type UpdateUserInfoInput struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

// ChangePackageOutput reports a completed package switch.
type ChangePackageOutput struct {
	Success      bool            `json:"success"`
	OldPackageID string          `json:"old_package_id"`
	NewPackage   model.Package   `json:"new_package"`
	Response     json.RawMessage `json:"response,omitempty"`
}

var identifierParam = &schema.ParameterInfo{
	Type:     schema.String,
	Desc:     "Customer phone number (e.g. +905551234567) or customer id (e.g. MSTR001)",
	Required: true,
}

// NewAccountRegistry registers the seven account capabilities; package info is the default.
func NewAccountRegistry(api AccountAPI) (*Registry, error) {
	if api == nil {
		return nil, errors.New("account api is nil")
	}
	return NewRegistry(ToolPackageInfo,
		userResourceCapability(api, ToolPackageInfo, "package",
			"Get the customer's current tariff package: name, price, data/voice/SMS limits and usage. Use for questions like 'paketim nedir', 'kaç GB kaldı'."),
		userResourceCapability(api, ToolBillInfo, "bills",
			"Get the customer's bills and payment status. Use for 'faturam', 'borcum', 'ödeme'."),
		userResourceCapability(api, ToolSupportTickets, "tickets",
			"List the customer's support tickets and their status. Use for 'şikayetim', 'destek talebim'."),
		allPackagesCapability(api),
		createTicketCapability(api),
		changePackageCapability(api),
		updateUserInfoCapability(api),
	)
}

func userResourceCapability(api AccountAPI, name, resource, desc string) Capability {
	return newCapability(
		&schema.ToolInfo{
			Name: name,
			Desc: desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				IdentifierArg: identifierParam,
			}),
		},
		true,
		func(ctx context.Context, in *IdentifierInput) (json.RawMessage, error) {
			user, err := api.FindUser(ctx, in.PhoneNumber)
			if err != nil {
				return nil, err
			}
			return api.UserResource(ctx, user.ID, resource)
		},
	)
}

func allPackagesCapability(api AccountAPI) Capability {
	return newCapability(
		&schema.ToolInfo{
			Name:        ToolAllPackages,
			Desc:        "List every tariff package currently on sale with prices and limits. Use for 'hangi paketler var', 'kampanya', package comparisons.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		false,
		func(ctx context.Context, _ *AllPackagesInput) ([]model.Package, error) {
			return api.Packages(ctx)
		},
	)
}

func createTicketCapability(api AccountAPI) Capability {
	return newCapability(
		&schema.ToolInfo{
			Name: ToolCreateTicket,
			Desc: "Open a support ticket for a technical, billing or package problem the customer reports.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				IdentifierArg: identifierParam,
				"title":       {Type: schema.String, Desc: "Short summary of the problem", Required: true},
				"description": {Type: schema.String, Desc: "Problem details in the customer's words", Required: true},
				"issue_type":  {Type: schema.String, Desc: "Problem category", Enum: []string{"baglanti", "faturalama", "hesap", "teknik", "paket"}},
				"priority":    {Type: schema.String, Desc: "Urgency", Enum: []string{"dusuk", "orta", "yuksek"}},
			}),
		},
		true,
		func(ctx context.Context, in *CreateTicketInput) (json.RawMessage, error) {
			user, err := api.FindUser(ctx, in.PhoneNumber)
			if err != nil {
				return nil, err
			}
			req := model.TicketRequest{
				TicketID:    NewTicketID(),
				UserID:      user.ID,
				Title:       in.Title,
				Description: in.Description,
				IssueType:   orDefault(in.IssueType, defaultIssueType),
				Priority:    orDefault(in.Priority, defaultPriority),
				Status:      "açık",
			}
			return api.CreateTicket(ctx, req)
		},
	)
}

func changePackageCapability(api AccountAPI) Capability {
	return newCapability(
		&schema.ToolInfo{
			Name: ToolChangePackage,
			Desc: "Switch the customer to another tariff package. Only call when the customer explicitly asks to change and names the package id.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				IdentifierArg:    identifierParam,
				"new_package_id": {Type: schema.String, Desc: "Target package id, e.g. PKG003", Required: true},
			}),
		},
		true,
		func(ctx context.Context, in *ChangePackageInput) (*ChangePackageOutput, error) {
			user, err := api.FindUser(ctx, in.PhoneNumber)
			if err != nil {
				return nil, err
			}
			pkgs, err := api.Packages(ctx)
			if err != nil {
				return nil, err
			}
			var target *model.Package
			for i := range pkgs {
				if strings.EqualFold(pkgs[i].PackageID, in.NewPackageID) {
					target = &pkgs[i]
					break
				}
			}
			if target == nil {
				return nil, errx.New(fmt.Errorf("package %s does not exist", in.NewPackageID), http.StatusNotFound, "package not found")
			}
			resp, err := api.UpdateUser(ctx, user.ID, map[string]any{"current_package_id": target.PackageID})
			if err != nil {
				return nil, err
			}
			return &ChangePackageOutput{
				Success:      true,
				OldPackageID: user.CurrentPackageID,
				NewPackage:   *target,
				Response:     resp,
			}, nil
		},
	)
}

func updateUserInfoCapability(api AccountAPI) Capability {
	return newCapability(
		&schema.ToolInfo{
			Name: ToolUpdateUserInfo,
			Desc: "Update the customer's contact details. Pass only the fields the customer wants changed.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				IdentifierArg: identifierParam,
				"email":       {Type: schema.String, Desc: "New e-mail address"},
				"address":     {Type: schema.String, Desc: "New postal address"},
				"city":        {Type: schema.String, Desc: "New city"},
				"first_name":  {Type: schema.String, Desc: "New first name"},
				"last_name":   {Type: schema.String, Desc: "New last name"},
			}),
		},
		true,
		func(ctx context.Context, in *UpdateUserInfoInput) (json.RawMessage, error) {
			fields := map[string]any{}
			for k, v := range map[string]string{
				"email":      in.Email,
				"address":    in.Address,
				"city":       in.City,
				"first_name": in.FirstName,
				"last_name":  in.LastName,
			} {
				if v != "" {
					fields[k] = v
				}
			}
			if len(fields) == 0 {
				return nil, errx.BadRequest("no fields to update")
			}
			user, err := api.FindUser(ctx, in.PhoneNumber)
			if err != nil {
				return nil, err
			}
			return api.UpdateUser(ctx, user.ID, fields)
		},
	)
}

// NewTicketID returns DLK followed by six upper-case hex characters.
func NewTicketID() string {
	return ticketPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
