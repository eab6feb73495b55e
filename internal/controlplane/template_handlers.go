package controlplane

import (
	"context"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/golempb"
)

func (s *Server) PutTemplate(ctx context.Context, req *golempb.PutTemplateRequest) (*golempb.PutTemplateResponse, error) {
	account := req.Account
	if account == "" {
		account = accountFromMetadata(ctx)
	}
	tpl, err := s.templates.Put(ctx, req.TemplateID, account, req.Name, req.WasmBytes)
	if err != nil {
		return nil, translateErr(err)
	}
	return &golempb.PutTemplateResponse{Template: *tpl}, nil
}

func (s *Server) GetTemplate(ctx context.Context, req *golempb.GetTemplateRequest) (*golempb.GetTemplateResponse, error) {
	tpl, err := s.templates.Get(ctx, req.TemplateID, req.Version)
	if err != nil {
		return nil, translateErr(err)
	}
	return &golempb.GetTemplateResponse{Template: *tpl}, nil
}

func (s *Server) GetLatestTemplate(ctx context.Context, req *golempb.GetLatestTemplateRequest) (*golempb.GetLatestTemplateResponse, error) {
	tpl, err := s.templates.GetLatest(ctx, req.TemplateID)
	if err != nil {
		return nil, translateErr(err)
	}
	return &golempb.GetLatestTemplateResponse{Template: *tpl}, nil
}

func (s *Server) FindTemplates(ctx context.Context, req *golempb.FindTemplatesRequest) (*golempb.FindTemplatesResponse, error) {
	account := req.Account
	if account == "" {
		account = accountFromMetadata(ctx)
	}
	templates, err := s.templates.Find(ctx, account, req.NameFilter)
	if err != nil {
		return nil, translateErr(err)
	}
	out := make([]domain.Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, *t)
	}
	return &golempb.FindTemplatesResponse{Templates: out}, nil
}

func (s *Server) GetTemplateMetadata(ctx context.Context, req *golempb.GetTemplateMetadataRequest) (*golempb.GetTemplateMetadataResponse, error) {
	versions, err := s.templates.Metadata(ctx, req.TemplateID)
	if err != nil {
		return nil, translateErr(err)
	}
	return &golempb.GetTemplateMetadataResponse{Versions: versions}, nil
}
