package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/automations/internal/outreach"
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Inspect the outreach provider used by whatsapp jobs",
}

var outreachCampaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List campaigns",
	Args:  cobra.NoArgs,
	RunE:  runOutreachCampaigns,
}

var outreachTouchpointsCmd = &cobra.Command{
	Use:   "touchpoints <campaign-id>",
	Short: "List a campaign's contact attempts",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutreachTouchpoints,
}

var outreachSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Enroll one phone number into a campaign",
	Args:  cobra.NoArgs,
	RunE:  runOutreachSend,
}

var (
	sendCampaign string
	sendPhone    string
	sendName     string
	sendMessage  string
)

func init() {
	outreachSendCmd.Flags().StringVar(&sendCampaign, "campaign", "", "Campaign id; defaults to OUTREACH_CAMPAIGN_ID")
	outreachSendCmd.Flags().StringVar(&sendPhone, "phone", "", "Phone number (required)")
	outreachSendCmd.Flags().StringVar(&sendName, "name", "", "Contact name")
	outreachSendCmd.Flags().StringVar(&sendMessage, "message", "", "First message")
	if err := outreachSendCmd.MarkFlagRequired("phone"); err != nil {
		panic(fmt.Sprintf("failed to mark phone flag as required: %v", err))
	}

	outreachCmd.AddCommand(outreachCampaignsCmd, outreachTouchpointsCmd, outreachSendCmd)
	rootCmd.AddCommand(outreachCmd)
}

func outreachClient(cmd *cobra.Command) (*outreach.Client, *app, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	if !a.cfg.Outreach.Enabled() {
		return nil, nil, errors.New("outreach provider not configured: set OUTREACH_BASE_URL and OUTREACH_API_KEY")
	}
	return outreach.NewClient(a.cfg.Outreach, a.cfg.Gateway.Timeout, a.logger), a, nil
}

func runOutreachCampaigns(cmd *cobra.Command, _ []string) error {
	client, _, err := outreachClient(cmd)
	if err != nil {
		return err
	}
	campaigns, err := client.ListCampaigns(cmd.Context())
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(campaigns))
	for _, c := range campaigns {
		rows = append(rows, []string{c.ID.String(), c.Name, c.Status})
	}
	return printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "STATUS"}, rows)
}

func runOutreachTouchpoints(cmd *cobra.Command, args []string) error {
	client, _, err := outreachClient(cmd)
	if err != nil {
		return err
	}
	tps, err := client.GetTouchpoints(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(tps))
	for _, tp := range tps {
		rows = append(rows, []string{tp.ID.String(), tp.Channel, tp.Phone, tp.Status, formatTime(tp.At.Time)})
	}
	return printTable(cmd.OutOrStdout(), []string{"ID", "CHANNEL", "PHONE", "STATUS", "AT"}, rows)
}

func runOutreachSend(cmd *cobra.Command, _ []string) error {
	client, a, err := outreachClient(cmd)
	if err != nil {
		return err
	}
	campaign := sendCampaign
	if campaign == "" {
		campaign = a.cfg.Outreach.CampaignID
	}
	seq, err := client.CreateSequence(cmd.Context(), outreach.SequenceRequest{
		CampaignID: campaign,
		Phone:      sendPhone,
		Name:       sendName,
		Message:    sendMessage,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sequence %s: %s\n", seq.ID, seq.Status)
	return nil
}
